package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmylchreest/summarize/internal/config"
	"github.com/jmylchreest/summarize/internal/database"
	"github.com/jmylchreest/summarize/internal/database/migrations"
	"github.com/jmylchreest/summarize/internal/extractor"
	"github.com/jmylchreest/summarize/internal/llmclient"
	"github.com/jmylchreest/summarize/internal/mediacache"
	"github.com/jmylchreest/summarize/internal/metacache"
	"github.com/jmylchreest/summarize/internal/modelid"
	"github.com/jmylchreest/summarize/internal/providers"
	"github.com/jmylchreest/summarize/internal/runner"
	"github.com/jmylchreest/summarize/internal/slides"
	"github.com/jmylchreest/summarize/internal/streammerge"
	"github.com/jmylchreest/summarize/internal/urlutil"
	"github.com/jmylchreest/summarize/pkg/httpclient"
)

// app bundles the wired-up runner plus the pieces the daemon and
// cache-management commands need direct access to beyond what
// runner.Dependencies exposes.
type app struct {
	cfg     *config.Config
	db      *database.DB
	runner  *runner.Runner
	deps    runner.Dependencies
	logger  *slog.Logger
}

// buildApp opens the metadata store, applies migrations, and wires every
// dependency a run needs, the same "assemble once at startup, share across
// runs" idiom the teacher's main.go uses for its repository/sandbox set.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := database.New(cfg.DatabaseConfig(), logger, nil)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.All())
	if err := migrator.Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	cacheTTL := time.Duration(cfg.Cache.TTLDays) * 24 * time.Hour
	mediaTTL := time.Duration(cfg.Cache.Media.TTLDays) * 24 * time.Hour
	mediaMaxBytes := int64(cfg.Cache.Media.MaxMB) * 1024 * 1024

	media, err := mediacache.NewCache(cfg.MediaCachePath(), mediaTTL, mediaMaxBytes)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening media cache: %w", err)
	}

	doer := httpclient.NewWithDefaults()
	fetcher := urlutil.NewResourceFetcher(httpclient.DefaultConfig())

	llm := llmclient.NewClient()
	registerProviders(llm, cfg, doer)

	models := modelid.NewRegistry(llm.HasCredentials)
	for name, preset := range cfg.Models {
		if preset.Name == "" {
			preset.Name = name
		}
		models.RegisterPreset(preset)
	}

	deps := runner.Dependencies{
		Extractor:   extractor.New(fetcher),
		Slides:      slides.New(cfg.Binaries.FFmpeg, cfg.Binaries.FFprobe, cfg.Binaries.Tesseract),
		LLM:         llm,
		Models:      models,
		Runs:        metacache.NewRunRepository(db.DB),
		Transcripts: metacache.NewTranscriptCache(db.DB, cacheTTL),
		Contents:    metacache.NewContentCache(db.DB, cacheTTL),
		Summaries:   metacache.NewSummaryCache(db.DB, cacheTTL),
		Media:       media,
		Buses:       streammerge.NewRegistry(),
		Logger:      logger,
	}

	return &app{
		cfg:    cfg,
		db:     db,
		runner: runner.New(deps),
		deps:   deps,
		logger: logger,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// registerProviders wires one llmclient.Provider per backend the pack's
// example repos and the configuration contract both name, reading
// credentials from the environment variables the configuration contract
// specifies. A provider with no API key is still registered: HasCredentials
// reports false and modelid.Registry.Resolve simply skips it as a
// candidate, rather than needing a conditional registration path.
func registerProviders(llm *llmclient.Client, cfg *config.Config, doer providers.Doer) {
	llm.Register(providers.NewOpenAI(doer, cfg.OpenAI.BaseURL, os.Getenv("OPENAI_API_KEY"), cfg.OpenAI.UseChatCompletions))
	llm.Register(providers.NewAnthropic(doer, cfg.Anthropic.BaseURL, os.Getenv("ANTHROPIC_API_KEY")))
	llm.Register(providers.NewXAI(doer, "", os.Getenv("XAI_API_KEY")))
	llm.Register(providers.NewOpenRouter(doer, "", os.Getenv("OPENROUTER_API_KEY")))
	llm.Register(providers.NewGemini(doer, "", firstEnv("GEMINI_API_KEY", "GOOGLE_GENERATIVE_AI_API_KEY", "GOOGLE_API_KEY")))
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
