package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"parlrag/internal/analysis"
	"parlrag/internal/corpus"
	"parlrag/internal/embedding"
)

var embedCmd = &cobra.Command{
	Use:   "embed [RUN_FILE...]",
	Short: "Embed recorded answers or corpus chunks",
	Long: `Embed every answer the analyzer would load from the given run logs, in the
same order, and write the unit-normalised vectors as JSON lines. Without
arguments analysis.runs is used. With --chunks the texts of a chunk file are
embedded instead, producing the matrix a corpus entry points at.

Examples:
  parlrag embed runs/run_a.jsonl runs/run_b.jsonl -o answers.jsonl
  parlrag embed --chunks data/fixed/chunks.jsonl -o data/fixed/emb.jsonl`,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().StringP("output", "o", "", "output matrix file (default analysis.embeddings)")
	embedCmd.Flags().String("chunks", "", "embed the chunks of this chunk file instead of run answers")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("output")
	chunksPath, _ := cmd.Flags().GetString("chunks")
	if out == "" {
		if chunksPath != "" {
			return fmt.Errorf("--output is required with --chunks")
		}
		out = cfg.Analysis.Embeddings
	}

	texts, err := embedInputs(chunksPath, args)
	if err != nil {
		return err
	}
	client, err := newVectorEncoder()
	if err != nil {
		return err
	}

	progress := newProgress("embedding")
	progress.Start(len(texts))
	rows, err := embedding.EncodeBatches(cmd.Context(), client, texts, cfg.Embedder.OpenAI.BatchSize, progress.Set)
	progress.Finish()
	if err != nil {
		return err
	}
	m, err := corpus.NewMatrix(rows)
	if err != nil {
		return err
	}
	if err := corpus.WriteMatrix(out, m); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("matrix_written", slog.String("path", out), slog.Int("rows", m.Rows), slog.Int("dim", m.Dim))
	return nil
}

func embedInputs(chunksPath string, runs []string) ([]string, error) {
	if chunksPath != "" {
		store, err := corpus.LoadStore(chunksPath)
		if err != nil {
			return nil, err
		}
		texts := make([]string, store.Len())
		for i, c := range store.Chunks() {
			texts[i] = c.Text
		}
		return texts, nil
	}
	if len(runs) == 0 {
		runs = cfg.Analysis.Runs
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no run files given and analysis.runs is empty")
	}
	paths, err := corpus.ExpandPaths(runs)
	if err != nil {
		return nil, err
	}
	records, err := analysis.LoadRecords(paths, logger)
	if err != nil {
		return nil, err
	}
	return analysis.Answers(records), nil
}
