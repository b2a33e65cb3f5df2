package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"parlrag/internal/analysis"
	"parlrag/internal/corpus"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [RUN_FILE...]",
	Short: "Report answer stability across k and lexical/semantic agreement",
	Long: `Load run logs and their answer embeddings (written by "parlrag embed" from
the same files in the same order) and report the least and most stable
(query, config) groups across k, and the most divergent and most aligned
lexical/semantic answer pairs.

Examples:
  parlrag analyze runs/run_a.jsonl runs/run_b.jsonl --embeddings answers.jsonl
  parlrag analyze --top 5 --json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("embeddings", "", "answer embedding matrix, .npy or .jsonl (default analysis.embeddings)")
	analyzeCmd.Flags().Int("top", 0, "rows per section (default analysis.top_n)")
	analyzeCmd.Flags().Bool("json", false, "output the full rankings as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	embPath, _ := cmd.Flags().GetString("embeddings")
	topN, _ := cmd.Flags().GetInt("top")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if embPath == "" {
		embPath = cfg.Analysis.Embeddings
	}
	if topN <= 0 {
		topN = cfg.Analysis.TopN
	}
	runs := args
	if len(runs) == 0 {
		runs = cfg.Analysis.Runs
	}
	if len(runs) == 0 {
		return fmt.Errorf("no run files given and analysis.runs is empty")
	}

	paths, err := corpus.ExpandPaths(runs)
	if err != nil {
		return err
	}
	records, err := analysis.LoadRecords(paths, logger)
	if err != nil {
		return err
	}
	vectors, err := corpus.LoadMatrix(embPath)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	a, err := analysis.NewAnalyzer(records, vectors)
	if err != nil {
		return err
	}
	report := a.Analyze(cfg.Analysis.Lexical, cfg.Analysis.Semantic)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.Render(cmd.OutOrStdout(), topN)
}
