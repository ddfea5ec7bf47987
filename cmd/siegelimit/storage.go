package main

import (
	"github.com/OCAP2/siegelimit/internal/config"
	"github.com/OCAP2/siegelimit/internal/database"
	"github.com/OCAP2/siegelimit/internal/storage"
	"github.com/OCAP2/siegelimit/internal/storage/memory"
)

// initStorage creates and initializes the configured audit backend.
// A backend that fails to start is replaced by the memory backend so
// decisions are still exported at the end of the session.
func initStorage() storage.Backend {
	storageCfg := config.GetStorageConfig()
	storageType = storageCfg.Type

	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		Logger:   Logger,
		DataDir:  AddonFolder,
		Postgres: database.PostgresConfigFromViper(),
	})
	if err == nil {
		err = backend.Init()
	}
	if err != nil {
		Logger.Error("Failed to initialize storage backend, falling back to memory", "type", storageCfg.Type, "error", err)
		storageType = "memory"
		backend = memory.New(storageCfg.Memory)
		if err := backend.Init(); err != nil {
			Logger.Error("Failed to initialize memory backend, auditing disabled", "error", err)
			storageType = "none"
			return storage.Discard{}
		}
	}

	Logger.Info("Storage backend initialized", "type", storageType)
	return backend
}
