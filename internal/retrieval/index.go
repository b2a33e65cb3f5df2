package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"parlrag/internal/corpus"
	"parlrag/internal/domain"
	"parlrag/internal/embedding"
)

var (
	// ErrShapeMismatch is returned when the embedding matrix does not have
	// exactly one row per chunk.
	ErrShapeMismatch = errors.New("embedding rows do not match chunk count")
	// ErrDimensionMismatch is returned when a query vector's width differs from
	// the corpus embeddings.
	ErrDimensionMismatch = errors.New("query vector dimension does not match embeddings")
)

// ShapeMismatchError carries the offending sizes of an ErrShapeMismatch.
type ShapeMismatchError struct {
	Chunks int
	Rows   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("mismatch: chunks=%d vs embeddings=%d (same order and size required)", e.Chunks, e.Rows)
}

// Is matches ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// QueryEncoder produces unit-norm query vectors.
type QueryEncoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingIndex is a brute-force cosine nearest-neighbour index over a fixed
// corpus. Rows are expected to be unit norm so the dot product is the cosine.
type EmbeddingIndex struct {
	store   *corpus.Store
	vectors *corpus.Matrix
	encoder QueryEncoder
	logger  *slog.Logger
}

// NewEmbeddingIndex pairs a chunk store with its embedding matrix. The matrix
// must have exactly one row per chunk, in the same order.
func NewEmbeddingIndex(store *corpus.Store, vectors *corpus.Matrix, encoder QueryEncoder, logger *slog.Logger) (*EmbeddingIndex, error) {
	if store.Len() != vectors.Rows {
		return nil, &ShapeMismatchError{Chunks: store.Len(), Rows: vectors.Rows}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingIndex{store: store, vectors: vectors, encoder: encoder, logger: logger}, nil
}

// Len returns the number of indexed chunks.
func (x *EmbeddingIndex) Len() int { return x.store.Len() }

// Search returns the min(k, n) chunks most similar to query, highest score
// first. k <= 0 yields an empty result.
func (x *EmbeddingIndex) Search(ctx context.Context, query string, k int) ([]domain.RetrievedPassage, error) {
	if k <= 0 || x.store.Len() == 0 {
		return []domain.RetrievedPassage{}, nil
	}
	q, err := x.encoder.Encode(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(q) != x.vectors.Dim {
		return nil, fmt.Errorf("query dim %d, embeddings dim %d: %w", len(q), x.vectors.Dim, ErrDimensionMismatch)
	}

	scores := make([]float32, x.vectors.Rows)
	for i := range scores {
		scores[i] = embedding.Dot(x.vectors.Row(i), q)
	}

	best := topK(scores, k)
	out := make([]domain.RetrievedPassage, len(best))
	for rank, i := range best {
		out[rank] = domain.NewRetrievedPassage(x.store.At(i), rank+1, float64(scores[i]))
	}
	x.logger.Debug("semantic_search_completed",
		slog.Int("k", k),
		slog.Int("returned", len(out)),
	)
	return out, nil
}

var _ domain.Retriever = (*EmbeddingIndex)(nil)
