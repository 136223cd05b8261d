package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glia-labs/convoscope/config"
	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/llm"
	"github.com/glia-labs/convoscope/pipeline"
)

// App holds the wired application stack shared by the CLI commands. The
// corpus is loaded once at startup; serve additionally watches for changes.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *corpus.Store

	// fileLoader is set when the corpus comes from local files; nil when
	// it was loaded from a NATS object store.
	fileLoader *corpus.FileLoader
}

// newApp loads configuration and the corpus. It does not touch the LLM
// endpoint; commands that need one call newPipeline.
func newApp(ctx context.Context, flags *rootFlags) (*App, error) {
	logger := setupLogging(flags.logLevel)

	cfg, err := loadConfig(flags, logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store := corpus.NewStore(logger)
	app := &App{Config: cfg, Logger: logger, Store: store}

	snap, err := app.loadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	store.Swap(snap)

	return app, nil
}

func loadConfig(flags *rootFlags, logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger)
	if flags.configPath != "" {
		return loader.LoadFile(flags.configPath)
	}
	return loader.Load()
}

// loadSnapshot builds the initial snapshot from the configured source. The
// NATS object store takes precedence when a bucket is configured.
func (a *App) loadSnapshot(ctx context.Context) (*corpus.Snapshot, error) {
	if a.Config.Corpus.NATS.Bucket != "" {
		loader := &corpus.ObjectLoader{
			URL:    a.Config.Corpus.NATS.URL,
			Bucket: a.Config.Corpus.NATS.Bucket,
			Object: a.Config.Corpus.NATS.Object,
			Logger: a.Logger,
		}
		return loader.Load(ctx)
	}

	a.fileLoader = &corpus.FileLoader{Glob: a.Config.Corpus.Glob, Logger: a.Logger}
	return a.fileLoader.Load()
}

// newPipeline wires the LLM client, sanitizer, and analysis pipeline.
// Provider or credential misconfiguration fails here, before any question
// is accepted.
func (a *App) newPipeline() (*pipeline.Pipeline, error) {
	return newPipelineFor(a.Config, a.Store, a.Logger)
}

// newPipelineFor wires a pipeline over an arbitrary store; the surveys
// command uses it with a store built from a parsed export.
func newPipelineFor(cfg *config.Config, store *corpus.Store, logger *slog.Logger) (*pipeline.Pipeline, error) {
	sanitizer, err := newSanitizer(cfg)
	if err != nil {
		return nil, err
	}
	client, err := newLLMClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.New(client, store, sanitizer, pipeline.Options{
		AnswerMaxTokens: cfg.LLM.MaxTokens,
		Logger:          logger,
	}), nil
}

func newLLMClient(cfg *config.Config, logger *slog.Logger) (llm.Completer, error) {
	temperature := cfg.LLM.Temperature
	client, err := llm.NewClient(llm.Endpoint{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.Endpoint,
		Temperature: &temperature,
		Timeout:     cfg.LLM.Timeout,
	}, llm.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	return client, nil
}
