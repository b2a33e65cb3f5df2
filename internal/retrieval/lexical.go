package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	index "github.com/blevesearch/bleve_index_api"

	"parlrag/internal/corpus"
	"parlrag/internal/domain"
)

// LexicalIndex ranks chunks by BM25 using a bleve scorch index kept in a
// temporary directory for the lifetime of the process.
type LexicalIndex struct {
	store  *corpus.Store
	index  bleve.Index
	dir    string
	logger *slog.Logger
}

type lexicalDoc struct {
	Text string `json:"text"`
}

// NewLexicalIndex indexes the text of every chunk in store. Document ids are
// corpus positions so hits map straight back to chunks.
func NewLexicalIndex(store *corpus.Store, logger *slog.Logger) (*LexicalIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := os.MkdirTemp("", "parlrag-bm25-")
	if err != nil {
		return nil, fmt.Errorf("create text index dir: %w", err)
	}
	idx, err := bleve.NewUsing(dir, buildIndexMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	x := &LexicalIndex{store: store, index: idx, dir: dir, logger: logger}

	batch := idx.NewBatch()
	for i, c := range store.Chunks() {
		if err := batch.Index(strconv.Itoa(i), lexicalDoc{Text: c.Text}); err != nil {
			_ = x.Close()
			return nil, fmt.Errorf("index chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = x.Close()
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	logger.Info("lexical_index_built", slog.Int("chunks", store.Len()), slog.String("scoring", index.BM25Scoring))
	return x, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName
	indexMapping.DefaultField = "text"
	indexMapping.ScoringModel = index.BM25Scoring

	docMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	textField.Store = false
	textField.Index = true
	docMapping.AddFieldMappingsAt("text", textField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Search returns up to k chunks matching query, best first. Chunks sharing no
// term with the query are not returned, so fewer than k results are possible.
func (x *LexicalIndex) Search(ctx context.Context, query string, k int) ([]domain.RetrievedPassage, error) {
	if k <= 0 || x.store.Len() == 0 || strings.TrimSpace(query) == "" {
		return []domain.RetrievedPassage{}, nil
	}
	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequestOptions(q, min(k, x.store.Len()), 0, false)

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		pos, err := strconv.Atoi(h.ID)
		if err != nil || pos < 0 || pos >= x.store.Len() {
			return nil, fmt.Errorf("lexical search: unexpected document id %q", h.ID)
		}
		hits = append(hits, hit{pos: pos, score: h.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})

	out := make([]domain.RetrievedPassage, len(hits))
	for rank, h := range hits {
		out[rank] = domain.NewRetrievedPassage(x.store.At(h.pos), rank+1, h.score)
	}
	x.logger.Debug("lexical_search_completed",
		slog.Int("k", k),
		slog.Int("returned", len(out)),
	)
	return out, nil
}

// Close releases the bleve index and removes its directory.
func (x *LexicalIndex) Close() error {
	err := x.index.Close()
	if rmErr := os.RemoveAll(x.dir); err == nil {
		err = rmErr
	}
	return err
}

var _ domain.Retriever = (*LexicalIndex)(nil)
