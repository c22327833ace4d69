// Package app wires keepsake's components from configuration: the record
// store driver, the conversation cache, the model invoker, and the engine.
// CLI commands construct an App instead of repeating the wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/quillhealthco/keepsake/pkg/care"
	"github.com/quillhealthco/keepsake/pkg/config"
	"github.com/quillhealthco/keepsake/pkg/credentials"
	"github.com/quillhealthco/keepsake/pkg/dotdir"
	"github.com/quillhealthco/keepsake/pkg/engine"
	"github.com/quillhealthco/keepsake/pkg/llm"
	"github.com/quillhealthco/keepsake/pkg/llm/provider"
	"github.com/quillhealthco/keepsake/pkg/memory/assembler"
	"github.com/quillhealthco/keepsake/pkg/memory/cache"
	"github.com/quillhealthco/keepsake/pkg/memory/summarizer"
	"github.com/quillhealthco/keepsake/pkg/storage"
	"github.com/quillhealthco/keepsake/pkg/storage/inmemory"
	"github.com/quillhealthco/keepsake/pkg/storage/postgres"
	"github.com/quillhealthco/keepsake/pkg/storage/sqlite"
)

// sqliteFile is the default database filename inside the .keepsake/ directory.
const sqliteFile = "keepsake.db"

// App is a fully wired keepsake runtime.
type App struct {
	Config     *config.Config
	Store      storage.RecordStore
	Cache      *cache.Cache
	Invoker    llm.Invoker
	Directory  *care.Directory
	Assembler  *assembler.Assembler
	Summarizer *summarizer.Summarizer
	Engine     *engine.Engine
	Log        *slog.Logger
}

// New wires an App from cfg. configDir overrides .keepsake/ directory
// resolution for the sqlite default path.
func New(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	store, err := newStore(ctx, cfg, configDir)
	if err != nil {
		return nil, err
	}

	pcfg := llm.ProviderConfig{
		Provider: cfg.Model.Provider,
		Model:    cfg.Model.Model,
		BaseURL:  cfg.Model.BaseURL,
		Timeout:  time.Duration(cfg.Model.TimeoutSeconds) * time.Second,
	}
	pcfg.APIKey = storedAPIKey(pcfg, configDir, log)

	invoker, err := provider.New(pcfg, log)
	if err != nil {
		closeErr := store.Close()
		if closeErr != nil {
			log.Warn("closing store", "error", closeErr)
		}
		return nil, fmt.Errorf("creating model invoker: %w", err)
	}

	memCache := cache.New(time.Duration(cfg.Memory.CacheTTLSeconds) * time.Second)
	directory := care.NewDirectory()

	asm := assembler.New(store, memCache, log,
		assembler.WithRecentTurns(int(cfg.Memory.RecentTurns)),
		assembler.WithSummaryCount(int(cfg.Memory.SummaryCount)),
		assembler.WithPinLimit(int(cfg.Memory.PinLimit)),
		assembler.WithTruncateFloor(int(cfg.Memory.TruncateFloor)),
	)

	summ := summarizer.New(store, memCache, invoker, log,
		summarizer.WithThreshold(int(cfg.Summarizer.Threshold)),
		summarizer.WithRules(summarizer.Rules{
			MaxChars:   int(cfg.Summarizer.MaxChars),
			MaxRatio:   cfg.Summarizer.MaxRatio,
			MinOverlap: cfg.Summarizer.MinOverlap,
		}),
		summarizer.WithSessions(directory),
	)

	eng := engine.New(engine.Params{
		Store:       store,
		Cache:       memCache,
		Assembler:   asm,
		Summarizer:  summ,
		Invoker:     invoker,
		Care:        directory,
		Sessions:    directory,
		Log:         log,
		Model:       cfg.Model.Model,
		TokenBudget: int(cfg.Memory.TokenBudget),
	})

	return &App{
		Config:     cfg,
		Store:      store,
		Cache:      memCache,
		Invoker:    invoker,
		Directory:  directory,
		Assembler:  asm,
		Summarizer: summ,
		Engine:     eng,
		Log:        log,
	}, nil
}

// Close releases the App's resources.
func (a *App) Close() error {
	return a.Store.Close()
}

// storedAPIKey falls back to the credentials.toml key for the configured
// provider when neither the config nor the environment supplies one.
func storedAPIKey(pcfg llm.ProviderConfig, configDir string, log *slog.Logger) string {
	if llm.ResolveAPIKey(pcfg) != "" {
		return pcfg.APIKey
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		log.Warn("resolving credentials store", "error", err)
		return ""
	}
	key, err := mgr.GetKey(pcfg.Provider)
	if err != nil {
		log.Warn("reading stored credentials", "error", err)
		return ""
	}
	return key
}

func newStore(ctx context.Context, cfg *config.Config, configDir string) (storage.RecordStore, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return inmemory.NewDriver(), nil

	case "sqlite", "":
		path := cfg.Storage.SQLitePath
		if path == "" {
			target, err := dotdir.NewManager().Target(configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving sqlite path: %w", err)
			}
			path = filepath.Join(target, sqliteFile)
		}
		store, err := sqlite.NewDriver(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil

	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres driver requires storage.postgres_dsn")
		}
		store, err := postgres.NewDriver(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q (available: memory, sqlite, postgres)", cfg.Storage.Driver)
	}
}
