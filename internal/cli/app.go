// Package cli implements the mystuff command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/subcommands"

	"github.com/vbonduro/mystuff/internal/config"
	"github.com/vbonduro/mystuff/internal/credentials"
	"github.com/vbonduro/mystuff/internal/db"
	"github.com/vbonduro/mystuff/internal/export"
	"github.com/vbonduro/mystuff/internal/journal"
	"github.com/vbonduro/mystuff/internal/logging"
	"github.com/vbonduro/mystuff/internal/metrics"
	"github.com/vbonduro/mystuff/internal/photostore/local"
	"github.com/vbonduro/mystuff/internal/pricelist"
	"github.com/vbonduro/mystuff/internal/service"
	"github.com/vbonduro/mystuff/internal/store"
	"github.com/vbonduro/mystuff/internal/vision"
	"github.com/vbonduro/mystuff/internal/vision/claude"
	"github.com/vbonduro/mystuff/internal/vision/gemini"
	"github.com/vbonduro/mystuff/internal/vision/ollama"
	"github.com/vbonduro/mystuff/internal/vision/openai"
)

// LoadFunc supplies the configuration for a command run.
type LoadFunc func() (*config.Config, error)

// Register adds every mystuff subcommand to c.
func Register(c *subcommands.Commander, load LoadFunc) {
	b := &base{load: load}

	c.Register(&serveCmd{base: b}, "server")

	c.Register(&addCmd{base: b}, "entries")
	c.Register(&listCmd{base: b}, "entries")
	c.Register(&captionCmd{base: b}, "entries")
	c.Register(&deleteCmd{base: b}, "entries")
	c.Register(&itemsCmd{base: b}, "entries")
	c.Register(&analyzeCmd{base: b}, "entries")

	c.Register(&exportCmd{base: b}, "export")
	c.Register(&pricesCmd{base: b}, "prices")
	c.Register(&apiKeyCmd{base: b}, "settings")
}

// App is the fully wired application behind every command.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Service   *service.JournalService
	Metrics   *metrics.Metrics
	Snapshots *store.SnapshotStore

	db      *sql.DB
	cleanup func()
}

// Open wires storage, the vision backend and the service from cfg and loads
// the persisted journal.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app, err := build(ctx, cfg, database, logger)
	if err != nil {
		_ = database.Close()
		cleanup()
		return nil, err
	}
	app.cleanup = cleanup
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, database *sql.DB, logger *slog.Logger) (*App, error) {
	snapshots := store.NewSnapshotStore(database)

	blobs, err := local.NewBlobStore(cfg.PhotoPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize photo store: %w", err)
	}

	var creds *credentials.Store
	if cfg.NeedsAPIKey() {
		creds = credentials.NewStore(snapshots, cfg.VisionBackend, logger)
		if err := creds.Load(ctx, cfg.APIKey()); err != nil {
			return nil, fmt.Errorf("failed to load api key: %w", err)
		}
	}

	m := metrics.New()
	deps := service.Deps{
		Entries: journal.NewRepository(snapshots, blobs, logger),
		Prices:  pricelist.NewStore(snapshots, logger),
		Blobs:   blobs,
		Engine: export.New(export.Options{
			AppName:  cfg.AppName,
			Currency: cfg.Currency,
			Logger:   logger,
		}),
		Analyzer:  newAnalyzer(cfg, creds, logger),
		Backend:   cfg.VisionBackend,
		Metrics:   m,
		ExportDir: cfg.ExportDir,
		Logger:    logger,
	}
	// A nil *credentials.Store must not become a non-nil interface.
	if creds != nil {
		deps.Credentials = creds
	}

	svc := service.NewJournalService(deps)
	if err := svc.Load(ctx); err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Service:   svc,
		Metrics:   m,
		Snapshots: snapshots,
		db:        database,
		cleanup:   func() {},
	}, nil
}

func (a *App) Close() {
	if err := a.db.Close(); err != nil {
		a.Logger.Error("failed to close database", "error", err)
	}
	a.cleanup()
}

// newAnalyzer picks the vision backend named by cfg. Keyed backends read the
// credential on every call so a key set at runtime takes effect immediately.
func newAnalyzer(cfg *config.Config, creds *credentials.Store, logger *slog.Logger) vision.Analyzer {
	var a vision.Analyzer
	switch cfg.VisionBackend {
	case config.BackendClaude:
		a = claude.NewAnalyzer(creds.Key, cfg.ClaudeModel)
	case config.BackendGemini:
		a = gemini.NewAnalyzer(creds.Key, cfg.GeminiModel)
	case config.BackendOllama:
		a = ollama.NewAnalyzer(cfg.OllamaHost, cfg.OllamaModel)
	default:
		a = openai.NewAnalyzer(creds.Key, cfg.OpenAIModel, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	logger.Info("using vision backend", "backend", cfg.VisionBackend, "timeout", cfg.AnalysisTimeout)
	return vision.WithTimeout(a, cfg.AnalysisTimeout)
}
