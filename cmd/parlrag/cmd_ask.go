package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"parlrag/internal/prompt"
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer one question",
	Long: `Answer a single question from the top-k retrieved passages.

Examples:
  parlrag ask "When did the Speaker address the chamber?"
  parlrag ask --rep bm25 -k 10 "What was said about fisheries?"
  parlrag ask --json "What dates did the committee sit?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().IntP("top-k", "k", 0, "passages to retrieve (default retrieval.top_k)")
	askCmd.Flags().String("rep", repSemantic, "retrieval representation: emb or bm25")
	askCmd.Flags().String("chunking", "", "corpus to search (default first configured)")
	askCmd.Flags().Bool("json", false, "output as JSON")
	askCmd.Flags().Bool("passages", false, "also print the retrieved passages")
}

func runAsk(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("top-k")
	rep, _ := cmd.Flags().GetString("rep")
	chunking, _ := cmd.Flags().GetString("chunking")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	showPassages, _ := cmd.Flags().GetBool("passages")

	svcs, err := buildServices([]string{rep})
	if err != nil {
		return err
	}
	defer svcs.Close()
	svc, err := svcs.pick(chunking)
	if err != nil {
		return err
	}

	ans, err := svc.Ask(cmd.Context(), strings.Join(args, " "), k, rep)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}
	fmt.Fprintln(out, ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, s := range ans.Sources {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	if showPassages {
		for _, p := range ans.Passages {
			fmt.Fprintf(out, "\n[%d] score=%.4f %s\n%s\n", p.Rank, p.Score, prompt.SourceRef(p), p.Text)
		}
	}
	return nil
}
