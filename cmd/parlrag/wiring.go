package main

import (
	"fmt"
	"io"
	"log/slog"

	"parlrag/internal/answer"
	"parlrag/internal/corpus"
	"parlrag/internal/domain"
	"parlrag/internal/embedding"
	"parlrag/internal/embedding/openai"
	"parlrag/internal/generation/ollama"
	"parlrag/internal/retrieval"
	"parlrag/internal/service"
)

const (
	repSemantic = "emb"
	repLexical  = "bm25"
)

func newVectorEncoder() (*openai.Client, error) {
	e := cfg.Embedder.OpenAI
	client, err := openai.NewClient(openai.Config{
		BaseURL:    e.BaseURL,
		APIKeyEnv:  e.APIKeyEnv,
		Model:      e.Model,
		Timeout:    cfg.EmbedTimeout(),
		MaxRetries: e.MaxRetries,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder init: %w", err)
	}
	return client, nil
}

func newRouter() *answer.Router {
	g := cfg.Generator.Ollama
	gen := ollama.NewGenerator(ollama.Config{
		BaseURL:     g.BaseURL,
		Model:       g.Model,
		Timeout:     cfg.GenerateTimeout(),
		Temperature: g.Temperature,
		Logger:      logger,
	})
	return answer.NewRouter(gen, cfg.Pacing(), logger)
}

// services holds one question-answering service per configured corpus.
type services struct {
	corpora []service.Corpus
	closers []io.Closer
	chunks  int
}

func (s *services) Close() error {
	for _, c := range s.closers {
		_ = c.Close()
	}
	return nil
}

// buildServices loads every corpus and wires its retrievers. Only the
// representations in reps are built; the first one is each service's default.
// An index over the corpus embeddings is built only when reps asks for it.
func buildServices(reps []string) (*services, error) {
	if err := cfg.RequireCorpora(); err != nil {
		return nil, err
	}
	if len(reps) == 0 {
		reps = []string{repSemantic}
	}

	var qenc *embedding.QueryEncoder
	router := newRouter()
	out := &services{}
	for _, cc := range cfg.Corpora {
		store, err := corpus.LoadStore(cc.Chunks)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("corpus %s: %w", cc.Chunking, err)
		}
		out.chunks += store.Len()

		retrievers := make(map[string]domain.Retriever, len(reps))
		for _, rep := range reps {
			switch rep {
			case repSemantic:
				if qenc == nil {
					client, err := newVectorEncoder()
					if err != nil {
						out.Close()
						return nil, err
					}
					if qenc, err = embedding.NewQueryEncoder(client, cfg.Retrieval.QueryCacheSize, logger); err != nil {
						out.Close()
						return nil, err
					}
				}
				vectors, err := corpus.LoadMatrix(cc.Embeddings)
				if err != nil {
					out.Close()
					return nil, fmt.Errorf("corpus %s: %w", cc.Chunking, err)
				}
				idx, err := retrieval.NewEmbeddingIndex(store, vectors, qenc, logger.With(slog.String("chunking", cc.Chunking)))
				if err != nil {
					out.Close()
					return nil, fmt.Errorf("corpus %s: %w", cc.Chunking, err)
				}
				retrievers[rep] = idx
			case repLexical:
				idx, err := retrieval.NewLexicalIndex(store, logger.With(slog.String("chunking", cc.Chunking)))
				if err != nil {
					out.Close()
					return nil, fmt.Errorf("corpus %s: %w", cc.Chunking, err)
				}
				out.closers = append(out.closers, idx)
				retrievers[rep] = idx
			default:
				out.Close()
				return nil, fmt.Errorf("unknown representation %q (want %s or %s)", rep, repSemantic, repLexical)
			}
		}

		svc, err := service.NewRAGService(retrievers, reps[0], router, cfg.Retrieval.TopK, logger.With(slog.String("chunking", cc.Chunking)))
		if err != nil {
			out.Close()
			return nil, err
		}
		out.corpora = append(out.corpora, service.Corpus{Chunking: cc.Chunking, Service: svc})
		logger.Info("corpus_loaded", slog.String("chunking", cc.Chunking), slog.Int("chunks", store.Len()))
	}
	return out, nil
}

// pick returns the service for chunking, or the first corpus when chunking is empty.
func (s *services) pick(chunking string) (service.Asker, error) {
	if chunking == "" {
		return s.corpora[0].Service, nil
	}
	for _, c := range s.corpora {
		if c.Chunking == chunking {
			return c.Service, nil
		}
	}
	return nil, fmt.Errorf("no corpus with chunking %q", chunking)
}
