package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEncodeBatches_SplitsAndNormalises(t *testing.T) {
	ctx := context.Background()
	enc := &mockVectorEncoder{}
	enc.On("Encode", ctx, []string{"a", "b"}).Return([][]float32{{3, 4}, {0, 2}}, nil).Once()
	enc.On("Encode", ctx, []string{"c"}).Return([][]float32{{5, 0}}, nil).Once()

	var progress []int
	rows, err := EncodeBatches(ctx, enc, []string{"a", "b", "c"}, 2, func(done int) {
		progress = append(progress, done)
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, rows[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0, 1}, rows[1], 1e-6)
	assert.InDeltaSlice(t, []float32{1, 0}, rows[2], 1e-6)
	assert.Equal(t, []int{2, 3}, progress)
	enc.AssertExpectations(t)
}

func TestEncodeBatches_RowCountMismatch(t *testing.T) {
	ctx := context.Background()
	enc := &mockVectorEncoder{}
	enc.On("Encode", ctx, mock.Anything).Return([][]float32{{1}}, nil)

	_, err := EncodeBatches(ctx, enc, []string{"a", "b"}, 8, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 texts")
}

func TestEncodeBatches_PropagatesError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	enc := &mockVectorEncoder{}
	enc.On("Encode", ctx, mock.Anything).Return(nil, boom)

	_, err := EncodeBatches(ctx, enc, []string{"a"}, 0, nil)
	assert.ErrorIs(t, err, boom)
}
