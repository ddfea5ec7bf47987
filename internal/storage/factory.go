package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/OCAP2/siegelimit/internal/config"
	"github.com/OCAP2/siegelimit/internal/database"
	"github.com/OCAP2/siegelimit/internal/storage/memory"
	"github.com/OCAP2/siegelimit/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/siegelimit/internal/storage/sqlite"
	"github.com/OCAP2/siegelimit/internal/storage/websocket"
)

// SQLiteDumpFile is the dump written next to the addon by the sqlite backend.
const SQLiteDumpFile = "siegelimit_audit.db"

// Dependencies holds what the backends need besides their config section.
type Dependencies struct {
	Logger   *slog.Logger
	DataDir  string // directory for sqlite dumps
	Postgres database.PostgresConfig
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	logger := deps.Logger.With("component", "storage", "backend", cfg.Type)

	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{Config: deps.Postgres, Logger: logger}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     filepath.Join(deps.DataDir, SQLiteDumpFile),
		}, logger)
	case "memory":
		return memory.New(cfg.Memory), nil
	case "websocket":
		return websocket.New(websocket.Config{URL: cfg.WebSocket.URL, Secret: cfg.WebSocket.Secret}, logger), nil
	case "none", "":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// QueueLengths reports pending writes for backends that batch, nil otherwise.
func QueueLengths(b Backend) map[string]int {
	type queued interface{ QueueLengths() map[string]int }
	if q, ok := b.(queued); ok {
		return q.QueueLengths()
	}
	return nil
}
