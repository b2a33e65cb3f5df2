package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Chunk is one retrievable passage of a debate transcript with its metadata.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	ParentID   string `json:"parent_id,omitempty"`
	Filename   string `json:"filename"`
	Date       string `json:"date"`
	Parliament string `json:"parliament"`
	Text       string `json:"text"`
}

// RetrievedPassage is a chunk ranked against one query.
type RetrievedPassage struct {
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	ChunkID    string  `json:"chunk_id"`
	ParentID   string  `json:"parent_id,omitempty"`
	Filename   string  `json:"filename"`
	Date       string  `json:"date"`
	Parliament string  `json:"parliament"`
	Text       string  `json:"text"`
}

// NewRetrievedPassage projects a chunk into a ranked passage.
func NewRetrievedPassage(c Chunk, rank int, score float64) RetrievedPassage {
	return RetrievedPassage{
		Rank:       rank,
		Score:      score,
		ChunkID:    c.ChunkID,
		ParentID:   c.ParentID,
		Filename:   c.Filename,
		Date:       c.Date,
		Parliament: c.Parliament,
		Text:       c.Text,
	}
}

// QueryID identifies an evaluation question. Logs written by different tools
// carry it either as a JSON string or a number; both decode to the literal text.
type QueryID string

// UnmarshalJSON accepts a string or a number.
func (q *QueryID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = QueryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("query_id must be a string or number: %w", err)
	}
	*q = QueryID(n.String())
	return nil
}

// AnswerRecord is one answer produced by a run for a (query, config, k) point.
type AnswerRecord struct {
	QueryID        QueryID  `json:"query_id"`
	Query          string   `json:"query,omitempty"`
	Chunking       string   `json:"chunking"`
	Representation string   `json:"representation"`
	K              int      `json:"k"`
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources,omitempty"`
	Deterministic  bool     `json:"deterministic,omitempty"`
	RunID          string   `json:"run_id,omitempty"`

	// Derived on load; not part of the written log line.
	Config     string `json:"-"`
	SourceFile string `json:"-"`
	// HasK is false when the log line carried no k field.
	HasK bool `json:"-"`
}

// ConfigTag joins a chunking strategy and a representation as "{chunking}/{representation}".
func ConfigTag(chunking, representation string) string {
	return chunking + "/" + representation
}

// VectorEncoder turns texts into embedding vectors, one row per input.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}

// Generator sends a prompt to a text-generation model and returns its reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Version() string
}

// Retriever ranks corpus passages against a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]RetrievedPassage, error)
}
