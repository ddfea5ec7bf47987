package main

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C" // This is required to import the C code

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/siegelimit/internal/config"
	"github.com/OCAP2/siegelimit/internal/dispatcher"
	"github.com/OCAP2/siegelimit/internal/handlers"
	"github.com/OCAP2/siegelimit/internal/influx"
	"github.com/OCAP2/siegelimit/internal/lang"
	"github.com/OCAP2/siegelimit/internal/logging"
	"github.com/OCAP2/siegelimit/internal/monitor"
	intOtel "github.com/OCAP2/siegelimit/internal/otel"
	"github.com/OCAP2/siegelimit/internal/permission"
	"github.com/OCAP2/siegelimit/internal/placement"
	"github.com/OCAP2/siegelimit/internal/storage"
	"github.com/OCAP2/siegelimit/internal/world"
	"github.com/OCAP2/siegelimit/pkg/a3interface"

	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.0.1"
	BuildDate               string = "unknown"

	Addon         string = "siegelimit"
	ExtensionName string = "siegelimit"
)

// file paths
var (
	// HostDir is the directory of the server executable.
	HostDir string

	// AddonFolder holds the config, status and audit files. It is the folder of this
	// library, or @siegelimit under the host directory when the library sits next to the executable.
	AddonFolder string

	// ModulePath is the absolute path to this library file.
	ModulePath string

	InitLogFilePath string
	InitLogFile     *os.File
	LogFilePath     string
	LogFile         *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// Core
	limitStore  *placement.Store
	worldState  *world.World
	gate        *placement.Gate
	permissions *permission.Registry
	catalog     *lang.Catalog

	// Services
	handlerService  *handlers.Service
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
	influxManager   *influx.Manager

	storageBackend storage.Backend
	storageType    string

	shutdownOnce sync.Once
	shutdownErr  error
)

// init is run automatically when the module is loaded
func init() {
	var err error

	HostDir, err = a3interface.GetHostDir()
	if err != nil {
		panic(err)
	}

	ModulePath = a3interface.GetModulePath()
	AddonFolder = filepath.Dir(ModulePath)
	if AddonFolder == HostDir {
		AddonFolder = filepath.Join(HostDir, "@"+Addon)
	}

	if err := os.MkdirAll(AddonFolder, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create addon folder: %v\n", err)
	}

	InitLogFilePath = filepath.Join(AddonFolder, "init.log")
	InitLogFile, err = os.Create(InitLogFilePath)
	if err != nil {
		// Log to stderr since logging isn't set up yet
		fmt.Fprintf(os.Stderr, "Failed to create init log file: %v\n", err)
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(fileWriter(InitLogFile), "info", nil)
	Logger = SlogManager.Logger()

	if err = config.Load(AddonFolder); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "path", viper.ConfigFileUsed())
	}

	setupLogging()

	if err = setupCore(); err != nil {
		Logger.Error("Failed to set up placement core", "error", err)
		panic(err)
	}

	Logger.Info("Setting up a3interface...")
	if err = setupA3Interface(); err != nil {
		Logger.Error("Failed to set up a3interfaces!", "error", err)
		panic(err)
	}
	Logger.Info("Set up a3interfaces")

	if err = startServices(); err != nil {
		Logger.Error("Failed to start services", "error", err)
		panic(err)
	}
}

// setupLogging opens the session log file and re-creates the logger with
// the file, OTel and Graylog sinks.
func setupLogging() {
	logsDir := viper.GetString("logsDir")
	if !filepath.IsAbs(logsDir) {
		logsDir = filepath.Join(AddonFolder, logsDir)
	}

	var err error
	LogFile, LogFilePath, err = logging.OpenLogFile(logsDir, ExtensionName, SessionStartTime)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}
	if removed, err := logging.PruneLogs(logsDir, ExtensionName, viper.GetInt("logsKeep")); err != nil {
		Logger.Warn("Failed to prune old log files", "error", err)
	} else if len(removed) > 0 {
		Logger.Info("Pruned old log files", "count", len(removed))
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentExtensionVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      fileWriter(LogFile),
			MetricWriter:   fileWriter(LogFile),
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		}
	}

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		gw, err := logging.NewGelfWriter(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			extra = append(extra, logging.NewGelfHandler(gw, viper.GetString("logLevel")))
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(fileWriter(LogFile), viper.GetString("logLevel"), otelLogProvider, extra...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)
}

// fileWriter avoids handing a typed nil *os.File to the log sinks.
func fileWriter(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

// setupCore builds the world snapshot, the placement gate and its collaborators.
func setupCore() error {
	wc := config.GetWorldConfig()
	worldState = world.New(world.Options{
		CellSize: wc.CellSize,
		Ready:    !wc.RequireSync,
	})

	limitStore = placement.NewStore(config.GetLimitConfig())

	var err error
	gate, err = placement.NewGate(limitStore, worldState, worldState)
	if err != nil {
		return err
	}

	permissions = permission.NewRegistry(permission.Ignore)
	if err := permissions.Replace(permission.Ignore, viper.GetStringSlice("permissions.ignore")); err != nil {
		return err
	}

	catalog, err = lang.New(viper.GetString("lang.default"))
	if err != nil {
		return err
	}
	langDir := viper.GetString("lang.dir")
	if !filepath.IsAbs(langDir) {
		langDir = filepath.Join(AddonFolder, langDir)
	}
	if loaded, err := catalog.LoadDir(langDir); err != nil {
		Logger.Warn("Failed to load language files", "error", err, "dir", langDir)
	} else if len(loaded) > 0 {
		Logger.Info("Loaded language files", "languages", loaded)
	}

	cfg := limitStore.Load()
	Logger.Info("Placement limit configured",
		"maxNearby", cfg.MaxNearby,
		"checkRadius", cfg.CheckRadius,
		"unlimited", cfg.Unlimited,
		"failClosed", cfg.FailClosed,
		"restrictedKinds", cfg.Kinds())
	return nil
}

func setupA3Interface() (err error) {
	a3interface.SetVersion(CurrentExtensionVersion)

	eventDispatcher, err = dispatcher.New(logging.NewComponentLogger(Logger, "dispatcher"))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	registerLifecycleHandlers(eventDispatcher)
	a3interface.SetDispatcher(eventDispatcher)
	return nil
}

// startServices creates the audit, metrics and status services and registers
// the host commands.
func startServices() error {
	storageBackend = initStorage()

	if viper.GetBool("influx.enabled") {
		influxManager = influx.NewManager(
			logging.NewZerolog(Logger, "influx"),
			influx.ConfigFromViper(),
			filepath.Join(AddonFolder, "influx_backup.log.gz"),
		)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := influxManager.Connect(ctx); err != nil {
				Logger.Error("Failed to connect to InfluxDB", "error", err)
			}
		}()
	}

	deps := handlers.Dependencies{
		Logger:           Logger,
		World:            worldState,
		Gate:             gate,
		Store:            limitStore,
		Permissions:      permissions,
		Catalog:          catalog,
		Backend:          storageBackend,
		Reload:           config.ReloadInto,
		ExtensionVersion: CurrentExtensionVersion,
	}
	if influxManager != nil {
		deps.Metrics = influxManager
	}

	var err error
	handlerService, err = handlers.NewService(deps)
	if err != nil {
		return err
	}
	handlerService.Start()
	handlerService.RegisterHandlers(eventDispatcher)
	handlerService.RecordConfig(limitStore.Load(), "startup")

	config.Watch(limitStore, func(cfg *placement.Config, err error) {
		if err != nil {
			Logger.Warn("Config file change rejected, keeping previous values", "error", err)
			return
		}
		handlerService.RecordConfig(cfg, "file")
		Logger.Info("Config file reloaded", "maxNearby", cfg.MaxNearby, "unlimited", cfg.Unlimited)
	})

	monitorDeps := monitor.Dependencies{
		Logger:        Logger,
		World:         worldState,
		Store:         limitStore,
		Session:       handlerService.Session,
		StorageQueues: func() map[string]int { return storage.QueueLengths(storageBackend) },
		DispatcherQueues: func() map[string]int {
			queues := eventDispatcher.QueueLengths()
			queues["audit"] = handlerService.AuditPending()
			return queues
		},
		AuditDropped:     handlerService.AuditDropped,
		AddonFolder:      AddonFolder,
		ExtensionVersion: CurrentExtensionVersion,
		StorageType:      storageType,
	}
	if influxManager != nil {
		monitorDeps.Metrics = influxManager
	}
	monitorService = monitor.NewService(monitorDeps)
	if err := monitorService.Start(); err != nil {
		Logger.Error("Failed to start status monitor", "error", err)
	}

	SlogManager.GetSessionID = func() uint {
		if s := handlerService.Session(); s != nil {
			return s.ID
		}
		return 0
	}
	SlogManager.GetWorldName = func() string {
		if s := handlerService.Session(); s != nil {
			return s.WorldName
		}
		return ""
	}
	SlogManager.IsWorldReady = worldState.Available
	SlogManager.IsStatusRunning = monitorService.IsRunning

	Logger.Info("Services started", "commands", len(eventDispatcher.Commands()))
	return nil
}

// shutdown flushes the audit trail and telemetry. Safe to call more than once.
func shutdown() error {
	shutdownOnce.Do(func() {
		shutdownErr = closeAll()
	})
	return shutdownErr
}

func closeAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if eventDispatcher != nil {
		if err := eventDispatcher.Close(ctx); err != nil {
			Logger.Warn("Dispatcher did not drain", "error", err)
		}
	}
	if monitorService != nil {
		monitorService.Stop()
	}
	if handlerService != nil {
		handlerService.Close()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
		if exp, ok := storageBackend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
			Logger.Info("Audit exported", "path", exp.ExportedFilePath())
		}
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Error("Failed to close InfluxDB manager", "error", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	return SlogManager.Flush(ctx)
}

// main runs one command against the library when built as an executable:
//
//	siegelimit :STATUS:
//	siegelimit :PLACE:CHECK: <uid> <x,y,z> <kind>
func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Println("No arguments provided.")
		return
	}

	result, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   args[0],
		Args:      args[1:],
		Timestamp: time.Now(),
	})
	if err != nil {
		fmt.Println("error:", err)
	} else {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	}

	if err := shutdown(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
