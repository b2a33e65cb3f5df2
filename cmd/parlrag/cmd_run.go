package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"parlrag/internal/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer every query at every retrieval setting and log the answers",
	Long: `Answer each query from run.queries for every configured corpus, every
representation and every k, writing one JSON line per answer to
run_<timestamp>.jsonl under run.output_dir.

Examples:
  parlrag run
  parlrag run --ks 1,3,5 --reps emb
  parlrag run --queries eval/queries.jsonl -o runs/`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("queries", "", "queries JSON-lines file (default run.queries)")
	runCmd.Flags().IntSlice("ks", nil, "retrieval depths (default run.ks)")
	runCmd.Flags().StringSlice("reps", nil, "representations (default run.representations)")
	runCmd.Flags().StringP("output-dir", "o", "", "directory for the run log (default run.output_dir)")
}

func runRun(cmd *cobra.Command, args []string) error {
	queriesPath, _ := cmd.Flags().GetString("queries")
	ks, _ := cmd.Flags().GetIntSlice("ks")
	reps, _ := cmd.Flags().GetStringSlice("reps")
	outDir, _ := cmd.Flags().GetString("output-dir")
	if queriesPath == "" {
		queriesPath = cfg.Run.Queries
	}
	if len(ks) == 0 {
		ks = cfg.Run.Ks
	}
	if len(reps) == 0 {
		reps = cfg.Run.Representations
	}
	if outDir == "" {
		outDir = cfg.Run.OutputDir
	}
	for _, k := range ks {
		if k <= 0 {
			return fmt.Errorf("ks must be positive, got %d", k)
		}
	}

	queries, err := service.LoadQueries(queriesPath)
	if err != nil {
		return fmt.Errorf("load queries: %w", err)
	}
	svcs, err := buildServices(reps)
	if err != nil {
		return err
	}
	defer svcs.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(outDir, "run_"+time.Now().Format("20060102T150405")+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	runner := &service.Runner{
		Corpora:         svcs.corpora,
		Representations: reps,
		Ks:              ks,
		RunID:           uuid.NewString(),
		Logger:          logger,
	}
	if p := newProgress("answering"); p != nil {
		runner.Progress = p
	}
	n, runErr := runner.Run(cmd.Context(), queries, w)
	if err := w.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	logger.Info("run_written", slog.String("run_id", runner.RunID), slog.String("path", path), slog.Int("records", n))
	if runErr != nil {
		return runErr
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
