// Package app wires configuration, storage and the reconciliation engine
// into one handle for the command line.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nhle/calsync/internal/ics"
	"github.com/nhle/calsync/internal/model"
	"github.com/nhle/calsync/internal/store"
	appsync "github.com/nhle/calsync/internal/sync"
)

// memoryDatabase is the SQLite path for a throwaway database.
const memoryDatabase = ":memory:"

// App holds the long-lived pieces shared by every command.
type App struct {
	Config *model.AppConfig
	Store  *store.SQLiteStore
	Engine *appsync.Engine
	Logger *slog.Logger
}

// New opens the configured database and builds the engine.
func New(cfg *model.AppConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := cfg.Database.Path
	if path != memoryDatabase {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}

	engine := appsync.New(s, appsync.Options{
		Logger:             logger,
		DefaultTimeZone:    cfg.Sync.DefaultTimeZone,
		MaxDurationMinutes: cfg.Sync.MaxDurationMinutes,
		EventTimeout:       cfg.Sync.EventTimeout(),
		Locks:              appsync.NewConnLocks(),
	})

	return &App{
		Config: cfg,
		Store:  s,
		Engine: engine,
		Logger: logger,
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewRunner returns a scheduled runner over the configured connections.
func (a *App) NewRunner() *appsync.Runner {
	return appsync.NewRunner(a.Engine, a.Config.Connections, a.Logger)
}

// NewStager returns a stager writing into the app's store.
func (a *App) NewStager() *ics.Stager {
	return ics.NewStager(a.Store, a.Logger)
}
