package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"parlrag/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive question/answer view",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().IntP("top-k", "k", 0, "passages to retrieve (default retrieval.top_k)")
	tuiCmd.Flags().String("chunking", "", "corpus to search (default first configured)")
	tuiCmd.Flags().StringSlice("reps", []string{repSemantic, repLexical}, "representations to switch between with Tab")
}

func runTUI(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("top-k")
	chunking, _ := cmd.Flags().GetString("chunking")
	reps, _ := cmd.Flags().GetStringSlice("reps")

	svcs, err := buildServices(reps)
	if err != nil {
		return err
	}
	defer svcs.Close()
	svc, err := svcs.pick(chunking)
	if err != nil {
		return err
	}
	if k == 0 {
		k = cfg.Retrieval.TopK
	}

	summary := fmt.Sprintf("%d corpora, %d chunks, k=%d, model %s", len(svcs.corpora), svcs.chunks, k, cfg.Generator.Ollama.Model)
	m := tui.New(cmd.Context(), svc, reps, k, summary)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
