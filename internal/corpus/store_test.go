package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parlrag/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStore_PreservesOrderAndDefaultsDate(t *testing.T) {
	path := writeFile(t, "chunks.jsonl", `{"chunk_id":"c1","parent_id":"p1","filename":"a.txt","date":"2019-05-02","parliament":"42","text":"first"}

{"chunk_id":"c2","filename":"b.txt","parliament":"42","text":"second"}
`)

	store, err := LoadStore(path)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	assert.Equal(t, "c1", store.At(0).ChunkID)
	assert.Equal(t, "p1", store.At(0).ParentID)
	assert.Equal(t, "2019-05-02", store.At(0).Date)
	assert.Equal(t, "c2", store.At(1).ChunkID)
	assert.Equal(t, "unknown", store.At(1).Date)
}

func TestLoadStore_BadLineIsFatal(t *testing.T) {
	path := writeFile(t, "chunks.jsonl", "{\"chunk_id\":\"c1\"}\nnot json\n")

	_, err := LoadStore(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")
}

func TestLoadStore_MissingFile(t *testing.T) {
	_, err := LoadStore(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteStore_LoadsBackInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chunks.jsonl")
	chunks := []domain.Chunk{
		{ChunkID: "d:0", ParentID: "d", Filename: "d.txt", Date: "2019-04-01", Parliament: "54", Text: "one"},
		{ChunkID: "d:1", ParentID: "d", Filename: "d.txt", Date: "2019-04-01", Parliament: "54", Text: "two"},
	}
	require.NoError(t, WriteStore(path, chunks))

	s, err := LoadStore(path)
	require.NoError(t, err)
	assert.Equal(t, chunks, s.Chunks())
}
