// Package postgres implements the storage.Backend interface on PostgreSQL,
// using the GORM backend's queues and background writer.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/siegelimit/internal/database"
	gormstorage "github.com/OCAP2/siegelimit/internal/storage/gorm"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	DB     *gorm.DB // injected connection; when nil Init connects using Config
	Config database.PostgresConfig
	Logger *slog.Logger
}

// Backend is the GORM backend with Postgres connection handling.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: deps.DB, Logger: deps.Logger}),
		deps:    deps,
	}
}

// Init connects when no DB was injected, then migrates and starts the writer.
func (b *Backend) Init() error {
	if b.DB() == nil {
		db, err := database.OpenPostgres(b.deps.Config)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := database.Ping(db)
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(10)
		b.SetDB(db)
		b.deps.Logger.Info("Connected to Postgres", "host", b.deps.Config.Host, "database", b.deps.Config.Database)
	}

	return b.Backend.Init()
}
