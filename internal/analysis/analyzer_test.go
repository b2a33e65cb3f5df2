package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parlrag/internal/corpus"
	"parlrag/internal/domain"
)

func record(qid, chunking, rep string, k int) domain.AnswerRecord {
	return domain.AnswerRecord{
		QueryID:        domain.QueryID(qid),
		Chunking:       chunking,
		Representation: rep,
		K:              k,
		HasK:           true,
		Answer:         "answer",
		Config:         domain.ConfigTag(chunking, rep),
	}
}

func matrixOf(rows ...[]float32) *corpus.Matrix {
	m := &corpus.Matrix{Rows: len(rows)}
	if len(rows) > 0 {
		m.Dim = len(rows[0])
	}
	for _, r := range rows {
		m.Data = append(m.Data, r...)
	}
	return m
}

// gramRows returns unit vectors whose pairwise dot products are 0.9, 0.8
// and 0.7 for the pairs (0,1), (0,2) and (1,2).
func gramRows() [][]float32 {
	b := math.Sqrt(1 - 0.81)
	c := (0.7 - 0.9*0.8) / b
	d := math.Sqrt(1 - 0.64 - c*c)
	return [][]float32{
		{1, 0, 0},
		{0.9, float32(b), 0},
		{0.8, float32(c), float32(d)},
	}
}

func TestNewAnalyzer_RowCountMismatch(t *testing.T) {
	records := make([]domain.AnswerRecord, 10)
	for i := range records {
		records[i] = record("q1", "fixed", "emb", i+1)
	}
	rows := make([][]float32, 9)
	for i := range rows {
		rows[i] = []float32{1, 0}
	}

	a, err := NewAnalyzer(records, matrixOf(rows...))
	require.Error(t, err)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, ErrAlignment)

	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 10, ae.Records)
	assert.Equal(t, 9, ae.Rows)
}

func TestStability_MeanPairwise(t *testing.T) {
	records := []domain.AnswerRecord{
		record("q1", "fixed", "emb", 3),
		record("q1", "fixed", "emb", 5),
		record("q1", "fixed", "emb", 10),
	}
	a, err := NewAnalyzer(records, matrixOf(gramRows()...))
	require.NoError(t, err)

	assert.InDelta(t, 0.9, a.Similarity(0, 1), 1e-5)
	assert.InDelta(t, 0.8, a.Similarity(0, 2), 1e-5)
	assert.InDelta(t, 0.7, a.Similarity(1, 2), 1e-5)

	got := a.Stability()
	require.Len(t, got, 1)
	assert.Equal(t, domain.QueryID("q1"), got[0].QueryID)
	assert.Equal(t, "fixed/emb", got[0].Config)
	assert.Equal(t, 3, got[0].N)
	assert.InDelta(t, 0.8, got[0].MeanCos, 1e-5)
}

func TestStability_SingletonGroupsExcludedAndSorted(t *testing.T) {
	records := []domain.AnswerRecord{
		record("q1", "fixed", "emb", 3),
		record("q1", "fixed", "emb", 5),
		record("q2", "fixed", "emb", 3),
		record("q2", "fixed", "emb", 5),
		record("q3", "fixed", "emb", 3),
	}
	vectors := matrixOf(
		[]float32{1, 0},
		[]float32{1, 0},
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{1, 0},
	)
	a, err := NewAnalyzer(records, vectors)
	require.NoError(t, err)

	got := a.Stability()
	require.Len(t, got, 2)
	assert.Equal(t, domain.QueryID("q2"), got[0].QueryID)
	assert.InDelta(t, 0.0, got[0].MeanCos, 1e-6)
	assert.Equal(t, domain.QueryID("q1"), got[1].QueryID)
	assert.InDelta(t, 1.0, got[1].MeanCos, 1e-6)
}

func TestAgreement_ExcludesMissingCounterpart(t *testing.T) {
	records := []domain.AnswerRecord{
		record("q1", "fixed", "bm25", 3),
		record("q1", "fixed", "emb", 3),
		record("q1", "fixed", "bm25", 5), // no emb at k=5
		record("q2", "fixed", "bm25", 3), // no emb for q2
	}
	vectors := matrixOf(
		[]float32{1, 0},
		[]float32{0.6, 0.8},
		[]float32{1, 0},
		[]float32{0, 1},
	)
	a, err := NewAnalyzer(records, vectors)
	require.NoError(t, err)

	got := a.Agreement("bm25", "emb")
	require.Len(t, got, 1)
	assert.Equal(t, Agreement{
		QueryID:  "q1",
		Lexical:  "fixed/bm25",
		Semantic: "fixed/emb",
		K:        3,
		Cos:      got[0].Cos,
	}, got[0])
	assert.InDelta(t, 0.6, got[0].Cos, 1e-6)
}

func TestAgreement_LastDuplicateWins(t *testing.T) {
	records := []domain.AnswerRecord{
		record("q1", "fixed", "bm25", 3),
		record("q1", "fixed", "emb", 3),
		record("q1", "fixed", "emb", 3),
	}
	vectors := matrixOf(
		[]float32{1, 0},
		[]float32{1, 0},
		[]float32{0, 1},
	)
	a, err := NewAnalyzer(records, vectors)
	require.NoError(t, err)

	got := a.Agreement("bm25", "emb")
	require.Len(t, got, 1)
	assert.InDelta(t, 0.0, got[0].Cos, 1e-6)
}

func TestAgreement_SkipsRecordsWithoutKOrQueryID(t *testing.T) {
	noK := record("q1", "fixed", "bm25", 0)
	noK.HasK = false
	records := []domain.AnswerRecord{
		noK,
		record("q1", "fixed", "emb", 0),
		record("", "fixed", "bm25", 3),
		record("", "fixed", "emb", 3),
	}
	vectors := matrixOf(
		[]float32{1, 0},
		[]float32{1, 0},
		[]float32{1, 0},
		[]float32{1, 0},
	)
	a, err := NewAnalyzer(records, vectors)
	require.NoError(t, err)
	assert.Empty(t, a.Agreement("bm25", "emb"))
}

func TestAgreement_SortedAscending(t *testing.T) {
	records := []domain.AnswerRecord{
		record("q1", "fixed", "bm25", 3),
		record("q1", "fixed", "emb", 3),
		record("q2", "fixed", "bm25", 3),
		record("q2", "fixed", "emb", 3),
		record("q3", "sentence", "bm25", 3),
		record("q3", "sentence", "emb", 3),
	}
	vectors := matrixOf(
		[]float32{1, 0}, []float32{1, 0},
		[]float32{1, 0}, []float32{0, 1},
		[]float32{1, 0}, []float32{0.6, 0.8},
	)
	a, err := NewAnalyzer(records, vectors)
	require.NoError(t, err)

	got := a.Agreement("bm25", "emb")
	require.Len(t, got, 3)
	assert.Equal(t, domain.QueryID("q2"), got[0].QueryID)
	assert.Equal(t, domain.QueryID("q3"), got[1].QueryID)
	assert.Equal(t, "sentence/emb", got[1].Semantic)
	assert.Equal(t, domain.QueryID("q1"), got[2].QueryID)

	report := a.Analyze("bm25", "emb")
	assert.Equal(t, domain.QueryID("q1"), report.MostAligned(1)[0].QueryID)
	assert.Equal(t, domain.QueryID("q2"), report.MostDivergent(1)[0].QueryID)
	assert.Len(t, report.MostAligned(10), 3)
}

func TestReport_SlicesHandleShortLists(t *testing.T) {
	r := Report{Stability: []Stability{
		{QueryID: "a", MeanCos: 0.1},
		{QueryID: "b", MeanCos: 0.5},
		{QueryID: "c", MeanCos: 0.9},
	}}
	assert.Equal(t, []domain.QueryID{"a", "b"}, ids(r.MostUnstable(2)))
	assert.Equal(t, []domain.QueryID{"c", "b"}, ids(r.MostStable(2)))
	assert.Len(t, r.MostStable(10), 3)
	assert.Empty(t, r.MostUnstable(0))
	assert.Empty(t, Report{}.MostDivergent(5))
}

func TestReport_SlicesClampNegativeN(t *testing.T) {
	r := Report{
		Stability: []Stability{{QueryID: "a", MeanCos: 0.1}},
		Agreement: []Agreement{{QueryID: "a", K: 3, Cos: 0.5}},
	}
	assert.Empty(t, r.MostUnstable(-2))
	assert.Empty(t, r.MostStable(-2))
	assert.Empty(t, r.MostDivergent(-2))
	assert.Empty(t, r.MostAligned(-2))
}

func ids(s []Stability) []domain.QueryID {
	out := make([]domain.QueryID, len(s))
	for i, v := range s {
		out[i] = v.QueryID
	}
	return out
}
