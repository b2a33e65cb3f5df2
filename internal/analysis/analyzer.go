package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"parlrag/internal/corpus"
	"parlrag/internal/domain"
	"parlrag/internal/embedding"
)

// ErrAlignment is returned when the answer embeddings do not have exactly one
// row per loaded record.
var ErrAlignment = errors.New("answer records and embeddings are not aligned")

// AlignmentError carries the offending sizes of an ErrAlignment.
type AlignmentError struct {
	Records int
	Rows    int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("mismatch rows vs embeddings: rows=%d emb=%d; embeddings must be generated from the same run files in the same order", e.Records, e.Rows)
}

// Is matches ErrAlignment.
func (e *AlignmentError) Is(target error) bool { return target == ErrAlignment }

// Analyzer compares recorded answers by the cosine similarity of their
// embeddings.
type Analyzer struct {
	records []domain.AnswerRecord
	n       int
	sim     []float32
}

// NewAnalyzer checks that row i of vectors embeds records[i] and computes the
// full pairwise similarity matrix.
func NewAnalyzer(records []domain.AnswerRecord, vectors *corpus.Matrix) (*Analyzer, error) {
	if len(records) != vectors.Rows {
		return nil, &AlignmentError{Records: len(records), Rows: vectors.Rows}
	}
	n := len(records)
	sim := make([]float32, n*n)
	for i := 0; i < n; i++ {
		ri := vectors.Row(i)
		sim[i*n+i] = embedding.Dot(ri, ri)
		for j := i + 1; j < n; j++ {
			s := embedding.Dot(ri, vectors.Row(j))
			sim[i*n+j] = s
			sim[j*n+i] = s
		}
	}
	return &Analyzer{records: records, n: n, sim: sim}, nil
}

// Len returns the number of records under analysis.
func (a *Analyzer) Len() int { return a.n }

// Similarity returns the cosine similarity of answers i and j.
func (a *Analyzer) Similarity(i, j int) float64 {
	return float64(a.sim[i*a.n+j])
}

// Stability summarises how much one query's answers under one config vary as
// the retrieval depth changes.
type Stability struct {
	QueryID domain.QueryID `json:"query_id"`
	Config  string         `json:"config"`
	N       int            `json:"n"`
	MeanCos float64        `json:"mean_cos"`
}

// Agreement is the similarity of the lexical and semantic answers for one
// (query, chunking, k) point.
type Agreement struct {
	QueryID  domain.QueryID `json:"query_id"`
	Lexical  string         `json:"lexical"`
	Semantic string         `json:"semantic"`
	K        int            `json:"k"`
	Cos      float64        `json:"cos"`
}

type groupKey struct {
	qid    domain.QueryID
	config string
}

// Stability groups records by (query_id, config) and returns the mean pairwise
// similarity of every group holding at least two answers, least stable first.
func (a *Analyzer) Stability() []Stability {
	groups := make(map[groupKey][]int)
	var order []groupKey
	for i, r := range a.records {
		key := groupKey{r.QueryID, r.Config}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	var out []Stability
	for _, key := range order {
		idxs := groups[key]
		if len(idxs) < 2 {
			continue
		}
		var sum float64
		pairs := 0
		for x := 0; x < len(idxs); x++ {
			for y := x + 1; y < len(idxs); y++ {
				sum += a.Similarity(idxs[x], idxs[y])
				pairs++
			}
		}
		out = append(out, Stability{
			QueryID: key.qid,
			Config:  key.config,
			N:       len(idxs),
			MeanCos: sum / float64(pairs),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeanCos < out[j].MeanCos })
	return out
}

type pointKey struct {
	qid    domain.QueryID
	config string
	k      int
}

// Agreement pairs every record whose config ends in "/"+lexical with the record
// for the same query and k whose config ends in "/"+semantic instead, and
// returns their similarities, most divergent first. Records with no
// counterpart are left out. When a (query, config, k) point was recorded more
// than once the last record wins.
func (a *Analyzer) Agreement(lexical, semantic string) []Agreement {
	index := make(map[pointKey]int)
	var order []pointKey
	for i, r := range a.records {
		if r.QueryID == "" || !r.HasK {
			continue
		}
		key := pointKey{r.QueryID, r.Config, r.K}
		if _, ok := index[key]; !ok {
			order = append(order, key)
		}
		index[key] = i
	}

	lexSuffix := "/" + lexical
	var out []Agreement
	for _, key := range order {
		if !strings.HasSuffix(key.config, lexSuffix) {
			continue
		}
		semConfig := strings.TrimSuffix(key.config, lexSuffix) + "/" + semantic
		j, ok := index[pointKey{key.qid, semConfig, key.k}]
		if !ok {
			continue
		}
		out = append(out, Agreement{
			QueryID:  key.qid,
			Lexical:  key.config,
			Semantic: semConfig,
			K:        key.k,
			Cos:      a.Similarity(index[key], j),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cos < out[j].Cos })
	return out
}

// Report holds both rankings, each sorted ascending.
type Report struct {
	Records   int         `json:"records"`
	Stability []Stability `json:"stability"`
	Agreement []Agreement `json:"agreement"`
	Lexical   string      `json:"lexical"`
	Semantic  string      `json:"semantic"`
}

// Analyze computes both rankings.
func (a *Analyzer) Analyze(lexical, semantic string) Report {
	return Report{
		Records:   a.n,
		Stability: a.Stability(),
		Agreement: a.Agreement(lexical, semantic),
		Lexical:   lexical,
		Semantic:  semantic,
	}
}

// MostUnstable returns up to n groups, least stable first.
func (r Report) MostUnstable(n int) []Stability {
	n = max(n, 0)
	return r.Stability[:min(n, len(r.Stability))]
}

// MostStable returns up to n groups, most stable first.
func (r Report) MostStable(n int) []Stability {
	n = max(n, 0)
	return reversed(r.Stability[len(r.Stability)-min(n, len(r.Stability)):])
}

// MostDivergent returns up to n lexical/semantic pairs, least similar first.
func (r Report) MostDivergent(n int) []Agreement {
	n = max(n, 0)
	return r.Agreement[:min(n, len(r.Agreement))]
}

// MostAligned returns up to n lexical/semantic pairs, most similar first.
func (r Report) MostAligned(n int) []Agreement {
	n = max(n, 0)
	return reversed(r.Agreement[len(r.Agreement)-min(n, len(r.Agreement)):])
}

func reversed[T any](s []T) []T {
	out := make([]T, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
