// Package chunker splits debate transcripts into retrievable chunks.
package chunker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"parlrag/internal/domain"
)

// Document is one transcript with the metadata every chunk inherits.
type Document struct {
	ID         string
	Filename   string
	Date       string
	Parliament string
	Text       string
}

// Chunker splits a document into chunks in reading order.
type Chunker interface {
	Chunk(doc Document) []domain.Chunk
}

var (
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	fileDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// New returns the chunker for a chunking tag: "sentence" groups sentences,
// "fixed" cuts fixed-size word windows.
func New(kind string, size, overlap int) (Chunker, error) {
	switch kind {
	case "sentence":
		return NewSentenceChunker(size, overlap), nil
	case "fixed":
		return NewWordChunker(size, overlap), nil
	default:
		return nil, fmt.Errorf("unknown chunking %q", kind)
	}
}

// LoadDocument reads a transcript. The document date is the first YYYY-MM-DD
// in the file name, or "unknown".
func LoadDocument(path, parliament string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	name := filepath.Base(path)
	if strings.TrimSpace(string(data)) == "" {
		return Document{}, errors.New(name + ": empty document")
	}
	date := fileDateRe.FindString(name)
	if date == "" {
		date = "unknown"
	}
	if parliament == "" {
		parliament = "unknown"
	}
	return Document{
		ID:         strings.TrimSuffix(name, filepath.Ext(name)),
		Filename:   name,
		Date:       date,
		Parliament: parliament,
		Text:       string(data),
	}, nil
}

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	overlapSentences = max(0, min(overlapSentences, sentencesPerChunk-1))
	return &SentenceChunker{sentencesPerChunk: sentencesPerChunk, overlapSentences: overlapSentences}
}

func (c *SentenceChunker) Chunk(doc Document) []domain.Chunk {
	sentences := sentenceRe.FindAllString(doc.Text, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(doc.Text)
		if trimmed == "" {
			return nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	return windows(doc, sentences, c.sentencesPerChunk, c.overlapSentences)
}

// WordChunker cuts text into windows of a fixed number of words.
type WordChunker struct {
	wordsPerChunk int
	overlapWords  int
}

func NewWordChunker(wordsPerChunk, overlapWords int) *WordChunker {
	if wordsPerChunk <= 0 {
		wordsPerChunk = 200
	}
	overlapWords = max(0, min(overlapWords, wordsPerChunk-1))
	return &WordChunker{wordsPerChunk: wordsPerChunk, overlapWords: overlapWords}
}

func (c *WordChunker) Chunk(doc Document) []domain.Chunk {
	words := strings.Fields(doc.Text)
	if len(words) == 0 {
		return nil
	}
	return windows(doc, words, c.wordsPerChunk, c.overlapWords)
}

// windows joins units[i:i+size] for i stepping by size-overlap.
func windows(doc Document, units []string, size, overlap int) []domain.Chunk {
	var chunks []domain.Chunk
	for i, idx := 0, 0; i < len(units); idx++ {
		end := min(i+size, len(units))
		chunks = append(chunks, domain.Chunk{
			ChunkID:    doc.ID + ":" + strconv.Itoa(idx),
			ParentID:   doc.ID,
			Filename:   doc.Filename,
			Date:       doc.Date,
			Parliament: doc.Parliament,
			Text:       strings.Join(units[i:end], " "),
		})
		if end == len(units) {
			break
		}
		i = end - overlap
	}
	return chunks
}
