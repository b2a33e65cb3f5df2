package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"parlrag/internal/domain"
)

const unknown = "unknown"

// Store is the ordered, read-only sequence of corpus chunks.
type Store struct {
	chunks []domain.Chunk
}

// NewStore wraps chunks in their given order.
func NewStore(chunks []domain.Chunk) *Store {
	return &Store{chunks: chunks}
}

// Len returns the number of chunks.
func (s *Store) Len() int { return len(s.chunks) }

// At returns the chunk at position i.
func (s *Store) At(i int) domain.Chunk { return s.chunks[i] }

// Chunks returns the underlying sequence. Callers must not modify it.
func (s *Store) Chunks() []domain.Chunk { return s.chunks }

// LoadStore reads a JSON-lines chunk file, one object per line. Blank lines are
// ignored; a line that fails to decode is an error since skipping it would shift
// every following chunk against its embedding row.
func LoadStore(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []domain.Chunk
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var c domain.Chunk
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("%s:%d: decode chunk: %w", path, line, err)
		}
		if strings.TrimSpace(c.Date) == "" {
			c.Date = unknown
		}
		chunks = append(chunks, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewStore(chunks), nil
}

// WriteStore writes chunks as JSON lines in the order LoadStore reads them back.
func WriteStore(path string, chunks []domain.Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
