package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"parlrag/internal/answer"
	"parlrag/internal/domain"
	"parlrag/internal/prompt"
)

// Answer is the outcome of one question.
type Answer struct {
	Query          string                    `json:"query"`
	Representation string                    `json:"representation"`
	K              int                       `json:"k"`
	Text           string                    `json:"answer"`
	Sources        []string                  `json:"sources"`
	Passages       []domain.RetrievedPassage `json:"passages,omitempty"`
	Deterministic  bool                      `json:"deterministic"`
}

// RAGService retrieves passages, builds the prompt and routes it to an answer.
type RAGService struct {
	retrievers     map[string]domain.Retriever
	representation string
	router         *answer.Router
	defaultK       int
	logger         *slog.Logger
}

// NewRAGService wires retrievers keyed by representation name ("emb", "bm25").
// defaultRepresentation must be one of the keys.
func NewRAGService(retrievers map[string]domain.Retriever, defaultRepresentation string, router *answer.Router, defaultK int, logger *slog.Logger) (*RAGService, error) {
	if _, ok := retrievers[defaultRepresentation]; !ok {
		return nil, fmt.Errorf("no retriever for representation %q", defaultRepresentation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{
		retrievers:     retrievers,
		representation: defaultRepresentation,
		router:         router,
		defaultK:       defaultK,
		logger:         logger,
	}, nil
}

// Representations lists the configured representation names, sorted.
func (s *RAGService) Representations() []string {
	names := make([]string, 0, len(s.retrievers))
	for name := range s.retrievers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultK is the retrieval depth used when a caller passes k == 0.
func (s *RAGService) DefaultK() int { return s.defaultK }

// Ask answers query from the top-k passages of the named representation. An
// empty representation selects the default one and k == 0 the default depth.
func (s *RAGService) Ask(ctx context.Context, query string, k int, representation string) (*Answer, error) {
	if representation == "" {
		representation = s.representation
	}
	if k == 0 {
		k = s.defaultK
	}
	retriever, ok := s.retrievers[representation]
	if !ok {
		return nil, fmt.Errorf("unknown representation %q (have %s)", representation, strings.Join(s.Representations(), ", "))
	}

	start := time.Now()
	passages, err := retriever.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	text, sources := prompt.Build(query, passages)
	res, err := s.router.Answer(ctx, query, text)
	if err != nil {
		return nil, err
	}
	s.logger.Info("question_answered",
		slog.String("representation", representation),
		slog.Int("k", k),
		slog.Int("passages", len(passages)),
		slog.String("intent", res.Intent.String()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &Answer{
		Query:          query,
		Representation: representation,
		K:              k,
		Text:           res.Text,
		Sources:        sources,
		Passages:       passages,
		Deterministic:  res.Deterministic,
	}, nil
}
