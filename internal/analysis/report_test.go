package analysis

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Render(t *testing.T) {
	r := Report{
		Records: 6,
		Stability: []Stability{
			{QueryID: "q2", Config: "fixed/emb", N: 3, MeanCos: 0.41234},
			{QueryID: "q1", Config: "fixed/bm25", N: 2, MeanCos: 0.9},
		},
		Agreement: []Agreement{
			{QueryID: "q1", Lexical: "fixed/bm25", Semantic: "fixed/emb", K: 3, Cos: 0.25},
		},
		Lexical:  "bm25",
		Semantic: "emb",
	}
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, 1))

	want := `Records: 6

=== Top 1 most UNSTABLE configs (across k) ===
q2 | fixed/emb | n=3 | mean_cos=0.412

=== Top 1 most STABLE configs (across k) ===
q1 | fixed/bm25 | n=2 | mean_cos=0.900

=== Top 1 most DIVERGENT bm25 vs emb (low cos) ===
q1 | fixed/bm25 vs fixed/emb | k=3 | cos=0.250

=== Top 1 most ALIGNED bm25 vs emb (high cos) ===
q1 | fixed/bm25 vs fixed/emb | k=3 | cos=0.250
`
	assert.Equal(t, want, buf.String())
}

func TestReport_RenderWithoutPairs(t *testing.T) {
	r := Report{Records: 0, Lexical: "bm25", Semantic: "emb"}
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, 5))
	assert.Contains(t, buf.String(), "No bm25 vs emb pairs found")
	assert.NotContains(t, buf.String(), "DIVERGENT")
}

func TestReport_RenderNegativeN(t *testing.T) {
	r := Report{
		Records:   2,
		Stability: []Stability{{QueryID: "q1", Config: "fixed/emb", N: 2, MeanCos: 0.5}},
		Lexical:   "bm25",
		Semantic:  "emb",
	}
	var buf bytes.Buffer
	require.NotPanics(t, func() { require.NoError(t, r.Render(&buf, -2)) })
	assert.NotContains(t, buf.String(), "mean_cos=")
}
