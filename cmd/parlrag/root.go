package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parlrag/internal/config"
	logging "parlrag/internal/logger"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.AppConfig
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "parlrag",
	Short: "Question answering over parliamentary debates",
	Long: `parlrag retrieves debate passages by embedding or lexical search, answers
questions about them (date questions deterministically, the rest through a
local generation model), and measures how stable the answers are.

Example usage:
  parlrag ask "On what date did the minister speak about housing?"
  parlrag tui
  parlrag run --ks 3,5,10
  parlrag embed runs/run_20240101T000000.jsonl -o answers.jsonl
  parlrag analyze runs/*.jsonl --embeddings answers.jsonl`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml, then ~/.config/parlrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func initConfig() error {
	var (
		path string
		err  error
	)
	if cfgFile == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		path = cfgFile
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger = logging.New(logging.Level(cfg.Log.Level, verbose), cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("configuration loaded",
		slog.String("path", path),
		slog.Int("corpora", len(cfg.Corpora)),
		slog.String("embed_model", cfg.Embedder.OpenAI.Model),
		slog.String("generate_model", cfg.Generator.Ollama.Model),
	)
	return nil
}
