package analysis

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"parlrag/internal/domain"
)

type rawRecord struct {
	QueryID        domain.QueryID `json:"query_id"`
	Query          string         `json:"query"`
	Chunking       *string        `json:"chunking"`
	Representation *string        `json:"representation"`
	K              *int           `json:"k"`
	Answer         *string        `json:"answer"`
}

// LoadRecords reads run logs in the given order and concatenates their
// records. Missing files and records without an answer, chunking or
// representation are skipped with a warning. Any other read or decode failure
// is returned, since a silently dropped line would misalign the records with
// their answer embeddings.
func LoadRecords(paths []string, logger *slog.Logger) ([]domain.AnswerRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var out []domain.AnswerRecord
	for _, p := range paths {
		recs, skipped, err := loadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("run_file_missing", slog.String("path", p))
			continue
		}
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			logger.Warn("run_records_skipped", slog.String("path", p), slog.Int("skipped", skipped))
		}
		logger.Info("run_file_loaded", slog.String("path", p), slog.Int("records", len(recs)))
		out = append(out, recs...)
	}
	return out, nil
}

func loadFile(path string) ([]domain.AnswerRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	name := filepath.Base(path)
	var (
		out     []domain.AnswerRecord
		skipped int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var r rawRecord
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			return nil, 0, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if r.Answer == nil || *r.Answer == "" || r.Chunking == nil || r.Representation == nil {
			skipped++
			continue
		}
		rec := domain.AnswerRecord{
			QueryID:        r.QueryID,
			Query:          r.Query,
			Chunking:       *r.Chunking,
			Representation: *r.Representation,
			Answer:         *r.Answer,
			Config:         domain.ConfigTag(*r.Chunking, *r.Representation),
			SourceFile:     name,
		}
		if r.K != nil {
			rec.K = *r.K
			rec.HasK = true
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return out, skipped, nil
}

// Answers returns the answer texts of records, in order.
func Answers(records []domain.AnswerRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Answer
	}
	return out
}
