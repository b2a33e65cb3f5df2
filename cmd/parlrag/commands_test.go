package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parlrag/internal/analysis"
	"parlrag/internal/corpus"
)

func writeTestFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func testConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeTestFile(t, dir, "config.yaml", "log:\n  level: error\n")
}

func TestIngestCommand(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "in/2019-04-01_sitting.txt", "Mr Speaker rose. The House met. Prayers were read.")
	writeTestFile(t, dir, "in/nested/2019-05-02_sitting.txt", "The minister answered.")
	out := filepath.Join(dir, "chunks.jsonl")

	_, err := execute(t, "--config", testConfig(t, dir), "ingest",
		"--chunking", "sentence", "--parliament", "54", "-o", out,
		filepath.Join(dir, "in", "**", "*.txt"))
	require.NoError(t, err)

	store, err := corpus.LoadStore(out)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())
	assert.Equal(t, "2019-04-01_sitting:0", store.At(0).ChunkID)
	assert.Equal(t, "2019-04-01", store.At(0).Date)
	assert.Equal(t, "54", store.At(0).Parliament)
	assert.Equal(t, "Mr Speaker rose. The House met. Prayers were read.", store.At(0).Text)
	assert.Equal(t, "2019-05-02", store.At(1).Date)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	run := writeTestFile(t, dir, "run.jsonl", `{"query_id":"q1","chunking":"fixed","representation":"emb","k":3,"answer":"a"}
{"query_id":"q1","chunking":"fixed","representation":"emb","k":5,"answer":"b"}
{"query_id":"q1","chunking":"fixed","representation":"bm25","k":3,"answer":"c"}
{"query_id":"q1","chunking":"fixed","representation":"bm25","k":5,"answer":"d"}
`)
	emb := writeTestFile(t, dir, "answers.jsonl", "[1,0]\n[0.6,0.8]\n[1,0]\n[1,0]\n")

	out, err := execute(t, "--config", testConfig(t, dir), "analyze", "--top", "1", "--embeddings", emb, run)
	require.NoError(t, err)

	assert.Contains(t, out, "Records: 4\n")
	assert.Contains(t, out, "most UNSTABLE configs (across k) ===\nq1 | fixed/emb | n=2 | mean_cos=0.600\n")
	assert.Contains(t, out, "most STABLE configs (across k) ===\nq1 | fixed/bm25 | n=2 | mean_cos=1.000\n")
	assert.Contains(t, out, "(low cos) ===\nq1 | fixed/bm25 vs fixed/emb | k=5 | cos=0.600\n")
	assert.Contains(t, out, "(high cos) ===\nq1 | fixed/bm25 vs fixed/emb | k=3 | cos=1.000\n")
}

func TestAnalyzeCommand_Misaligned(t *testing.T) {
	dir := t.TempDir()
	run := writeTestFile(t, dir, "run.jsonl", `{"query_id":"q1","chunking":"fixed","representation":"emb","k":3,"answer":"a"}
{"query_id":"q1","chunking":"fixed","representation":"emb","k":5,"answer":"b"}
`)
	emb := writeTestFile(t, dir, "answers.jsonl", "[1,0]\n")

	_, err := execute(t, "--config", testConfig(t, dir), "analyze", "--top", "1", "--embeddings", emb, run)
	assert.ErrorIs(t, err, analysis.ErrAlignment)
}

func TestBarProgress_NilSafe(t *testing.T) {
	var p *barProgress
	p.Start(3)
	p.Increment()
	p.Set(2)
	p.Finish()
}
