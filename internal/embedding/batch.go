package embedding

import (
	"context"
	"fmt"

	"parlrag/internal/domain"
)

// EncodeBatches encodes texts in batches of batchSize and L2-normalises every
// row. Rows come back in input order. onBatch, when set, is called with the
// number of texts finished after each batch.
func EncodeBatches(ctx context.Context, enc domain.VectorEncoder, texts []string, batchSize int, onBatch func(done int)) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		rows, err := enc.Encode(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("encode batch %d-%d: %w", start, end, err)
		}
		if len(rows) != end-start {
			return nil, fmt.Errorf("encode batch %d-%d: got %d vectors for %d texts", start, end, len(rows), end-start)
		}
		for _, r := range rows {
			Normalize(r)
			out = append(out, r)
		}
		if onBatch != nil {
			onBatch(end)
		}
	}
	return out, nil
}
