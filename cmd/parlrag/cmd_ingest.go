package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"parlrag/internal/chunker"
	"parlrag/internal/corpus"
	"parlrag/internal/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Chunk debate transcripts into a chunk file",
	Long: `Split plain-text transcripts into chunks and write them as JSON lines, ready
for "parlrag embed --chunks" and the corpora section of the config. The
document date is taken from the first YYYY-MM-DD in each file name.

Examples:
  parlrag ingest --chunking sentence -o data/sentence/chunks.jsonl transcripts/*.txt
  parlrag ingest --chunking fixed --parliament 54 -o data/fixed/chunks.jsonl 'transcripts/**/*.txt'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("chunking", "sentence", "chunking strategy: sentence or fixed")
	ingestCmd.Flags().String("parliament", "", "parliament tag for every document")
	ingestCmd.Flags().StringP("output", "o", "chunks.jsonl", "output chunk file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("chunking")
	parliament, _ := cmd.Flags().GetString("parliament")
	out, _ := cmd.Flags().GetString("output")

	size, overlap := cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences
	if kind == "fixed" {
		size, overlap = cfg.Chunker.WordsPerChunk, cfg.Chunker.OverlapWords
	}
	ch, err := chunker.New(kind, size, overlap)
	if err != nil {
		return err
	}

	paths, err := corpus.ExpandPaths(args)
	if err != nil {
		return err
	}

	var chunks []domain.Chunk
	for _, p := range paths {
		doc, err := chunker.LoadDocument(p, parliament)
		if err != nil {
			logger.Warn("document_skipped", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		chunks = append(chunks, ch.Chunk(doc)...)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced from %d files", len(paths))
	}
	if err := corpus.WriteStore(out, chunks); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("corpus_ingested",
		slog.String("chunking", kind),
		slog.Int("documents", len(paths)),
		slog.Int("chunks", len(chunks)),
		slog.String("path", out),
	)
	return nil
}
