package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embeddings endpoint.
// Ollama serves the same API under /v1.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries,omitempty"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// OllamaGeneratorConfig holds connection details for an Ollama chat endpoint.
type OllamaGeneratorConfig struct {
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	PacingMillis int     `yaml:"pacing_millis"`
	Temperature  float64 `yaml:"temperature"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type   string                 `yaml:"type"`
	Ollama *OllamaGeneratorConfig `yaml:"ollama,omitempty"`
}

// RetrievalConfig tunes the retrievers.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
	// QueryCacheSize bounds the query vector cache; 0 keeps every vector.
	QueryCacheSize int `yaml:"query_cache_size"`
}

// ChunkerConfig configures how transcripts are split into chunks. Sentence
// chunking uses the sentence counts, fixed chunking the word counts.
type ChunkerConfig struct {
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
	OverlapSentences  int `yaml:"overlap_sentences"`
	WordsPerChunk     int `yaml:"words_per_chunk"`
	OverlapWords      int `yaml:"overlap_words"`
}

// CorpusConfig points at one chunked corpus and its chunk embeddings.
type CorpusConfig struct {
	Chunking   string `yaml:"chunking"`
	Chunks     string `yaml:"chunks"`
	Embeddings string `yaml:"embeddings"`
}

// RunConfig describes a batch evaluation run.
type RunConfig struct {
	Queries         string   `yaml:"queries"`
	Ks              []int    `yaml:"ks"`
	Representations []string `yaml:"representations"`
	OutputDir       string   `yaml:"output_dir"`
}

// AnalysisConfig describes a stability analysis pass.
type AnalysisConfig struct {
	Runs       []string `yaml:"runs,omitempty"`
	Embeddings string   `yaml:"embeddings"`
	Lexical    string   `yaml:"lexical"`
	Semantic   string   `yaml:"semantic"`
	TopN       int      `yaml:"top_n"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Corpora   []CorpusConfig  `yaml:"corpora,omitempty"`
	Run       RunConfig       `yaml:"run"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/parlrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/parlrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports configuration that no command could run with.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedder type %q", c.Embedder.Type)
	}
	if c.Generator.Type != "ollama" {
		return fmt.Errorf("unknown generator type %q", c.Generator.Type)
	}
	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval.top_k must not be negative, got %d", c.Retrieval.TopK)
	}
	if c.Analysis.TopN < 0 {
		return fmt.Errorf("analysis.top_n must not be negative, got %d", c.Analysis.TopN)
	}
	seen := make(map[string]bool, len(c.Corpora))
	for i, cp := range c.Corpora {
		if cp.Chunking == "" || cp.Chunks == "" || cp.Embeddings == "" {
			return fmt.Errorf("corpora[%d]: chunking, chunks and embeddings are required", i)
		}
		if seen[cp.Chunking] {
			return fmt.Errorf("corpora[%d]: duplicate chunking %q", i, cp.Chunking)
		}
		seen[cp.Chunking] = true
	}
	if c.Analysis.Lexical == c.Analysis.Semantic {
		return fmt.Errorf("analysis.lexical and analysis.semantic must differ, both are %q", c.Analysis.Lexical)
	}
	return nil
}

// RequireCorpora fails when no corpus is configured.
func (c *AppConfig) RequireCorpora() error {
	if len(c.Corpora) == 0 {
		return errors.New("no corpora configured; add at least one entry under corpora")
	}
	return nil
}

// EmbedTimeout returns the embeddings request timeout.
func (c *AppConfig) EmbedTimeout() time.Duration {
	return time.Duration(c.Embedder.OpenAI.TimeoutSecs) * time.Second
}

// GenerateTimeout returns the generation request timeout.
func (c *AppConfig) GenerateTimeout() time.Duration {
	return time.Duration(c.Generator.Ollama.TimeoutSecs) * time.Second
}

// Pacing returns the delay before each generation call.
func (c *AppConfig) Pacing() time.Duration {
	return time.Duration(c.Generator.Ollama.PacingMillis) * time.Millisecond
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "parlrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
	}
	if e := cfg.Embedder.OpenAI; e != nil {
		if e.BaseURL == "" {
			e.BaseURL = "http://localhost:11434/v1"
		}
		if e.Model == "" {
			e.Model = "nomic-embed-text"
		}
		if e.TimeoutSecs == 0 {
			e.TimeoutSecs = 30
		}
		if e.BatchSize == 0 {
			e.BatchSize = 32
		}
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "ollama"
	}
	if cfg.Generator.Ollama == nil {
		cfg.Generator.Ollama = &OllamaGeneratorConfig{PacingMillis: 200}
	}
	if g := cfg.Generator.Ollama; g != nil {
		if g.BaseURL == "" {
			g.BaseURL = "http://localhost:11434"
		}
		if g.Model == "" {
			g.Model = "qwen2.5:3b"
		}
		if g.TimeoutSecs == 0 {
			g.TimeoutSecs = 120
		}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}

	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Chunker.WordsPerChunk == 0 {
		cfg.Chunker.WordsPerChunk = 200
	}

	if len(cfg.Run.Ks) == 0 {
		cfg.Run.Ks = []int{3, 5, 10}
	}
	if len(cfg.Run.Representations) == 0 {
		cfg.Run.Representations = []string{"emb", "bm25"}
	}
	if cfg.Run.Queries == "" {
		cfg.Run.Queries = "queries.jsonl"
	}
	if cfg.Run.OutputDir == "" {
		cfg.Run.OutputDir = "runs"
	}

	if cfg.Analysis.Lexical == "" {
		cfg.Analysis.Lexical = "bm25"
	}
	if cfg.Analysis.Semantic == "" {
		cfg.Analysis.Semantic = "emb"
	}
	if cfg.Analysis.TopN == 0 {
		cfg.Analysis.TopN = 10
	}
	if cfg.Analysis.Embeddings == "" {
		cfg.Analysis.Embeddings = "answers.jsonl"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
