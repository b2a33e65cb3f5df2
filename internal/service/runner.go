package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"parlrag/internal/domain"
)

// Query is one evaluation question.
type Query struct {
	ID    domain.QueryID `json:"query_id"`
	Query string         `json:"query"`
}

// LoadQueries reads a JSON-lines file of {query_id, query} objects.
func LoadQueries(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Query
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var q Query
		if err := json.Unmarshal([]byte(text), &q); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if strings.TrimSpace(q.Query) == "" {
			return nil, fmt.Errorf("%s:%d: empty query", path, line)
		}
		out = append(out, q)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Asker is the part of RAGService the runner needs.
type Asker interface {
	Ask(ctx context.Context, query string, k int, representation string) (*Answer, error)
}

// Corpus pairs a chunking strategy tag with the service answering over it.
type Corpus struct {
	Chunking string
	Service  Asker
}

// ProgressReporter is notified once per answered point.
type ProgressReporter interface {
	Start(total int)
	Increment()
	Finish()
}

// Runner answers every query at every (chunking, representation, k) point and
// writes one AnswerRecord line per answer.
type Runner struct {
	Corpora         []Corpus
	Representations []string
	Ks              []int
	Progress        ProgressReporter
	// RunID, when set, is stamped on every record.
	RunID  string
	Logger *slog.Logger
}

// Run writes records to w in query, chunking, representation, k order. The
// first answer error aborts the run.
func (r *Runner) Run(ctx context.Context, queries []Query, w io.Writer) (int, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	total := len(queries) * len(r.Corpora) * len(r.Representations) * len(r.Ks)
	if r.Progress != nil {
		r.Progress.Start(total)
		defer r.Progress.Finish()
	}

	enc := json.NewEncoder(w)
	written := 0
	for _, q := range queries {
		for _, c := range r.Corpora {
			for _, rep := range r.Representations {
				for _, k := range r.Ks {
					if err := ctx.Err(); err != nil {
						return written, err
					}
					ans, err := c.Service.Ask(ctx, q.Query, k, rep)
					if err != nil {
						return written, fmt.Errorf("query %s %s k=%d: %w", q.ID, domain.ConfigTag(c.Chunking, rep), k, err)
					}
					rec := domain.AnswerRecord{
						QueryID:        q.ID,
						Query:          q.Query,
						Chunking:       c.Chunking,
						Representation: rep,
						K:              k,
						Answer:         ans.Text,
						Sources:        ans.Sources,
						Deterministic:  ans.Deterministic,
						RunID:          r.RunID,
					}
					if err := enc.Encode(rec); err != nil {
						return written, fmt.Errorf("write record: %w", err)
					}
					written++
					if r.Progress != nil {
						r.Progress.Increment()
					}
				}
			}
		}
	}
	logger.Info("run_completed", slog.String("run_id", r.RunID), slog.Int("records", written), slog.Int("queries", len(queries)))
	return written, nil
}
