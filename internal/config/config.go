package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/siegelimit/internal/placement"
	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the addon directory.
	FileName = "siegelimit.cfg.json"
	// Version is the current config format version.
	Version = "2.0.0"
)

// DefaultRestrictedKinds are the siege deployables limited out of the box.
var DefaultRestrictedKinds = []string{
	"assets/prefabs/weapons/deployablesiegeexplosives/flammablesiegedeployable.prefab",
	"assets/prefabs/weapons/deployablesiegeexplosives/explosivesiegedeployable.prefab",
}

// ErrInvalidConfig is returned when the config file fails validation.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed schema.json
var schemaJSON string

// mu serialises file reads against each other and against the getters,
// since viper's global instance is not safe for concurrent use.
var mu sync.RWMutex

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("siegelimit.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// WebSocketConfig holds the streaming audit backend settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// SQLiteConfig holds the sqlite audit backend settings.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the audit storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// WorldConfig holds world snapshot settings.
type WorldConfig struct {
	CellSize    float64 `json:"cellSize" mapstructure:"cellSize"`
	RequireSync bool    `json:"requireSync" mapstructure:"requireSync"`
}

func setDefaults() {
	viper.SetDefault("version", Version)
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./siegelimit_logs")
	viper.SetDefault("logsKeep", 20)

	// limit.maxNearby has no default: a file without it means no limit.
	viper.SetDefault("limit.checkRadius", 5.0)
	viper.SetDefault("limit.restrictedKinds", DefaultRestrictedKinds)
	viper.SetDefault("limit.failClosed", false)

	viper.SetDefault("world.cellSize", 16.0)
	viper.SetDefault("world.requireSync", true)

	viper.SetDefault("permissions.ignore", []string{})

	viper.SetDefault("lang.default", "en")
	viper.SetDefault("lang.dir", "lang")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./siegelimit_audit")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/siegelimit/ws")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "siegelimit")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "siegelimit")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "siegelimit")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// defaultFile is written when no config file exists.
func defaultFile() map[string]any {
	return map[string]any{
		"version":  Version,
		"logLevel": "info",
		"limit": map[string]any{
			"maxNearby":       5,
			"checkRadius":     5.0,
			"restrictedKinds": DefaultRestrictedKinds,
			"failClosed":      false,
		},
		"permissions": map[string]any{
			"ignore": []string{},
		},
		"storage": map[string]any{
			"type": "memory",
		},
	}
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// created with defaults; an older format is migrated and written back.
func Load(configDir string) error {
	mu.Lock()
	defer mu.Unlock()

	setDefaults()

	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeJSON(path, defaultFile()); err != nil {
			return fmt.Errorf("error creating default config file: %w", err)
		}
	}

	if err := prepareFile(path); err != nil {
		return err
	}

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Reload re-reads the config file. On a validation error the previously
// loaded values stay in effect and the error wraps ErrInvalidConfig.
func Reload() (*placement.Config, error) {
	mu.Lock()
	defer mu.Unlock()
	return reload()
}

// ReloadInto re-reads the config file and publishes the result to store
// before releasing the lock, so concurrent reloads publish in file order.
func ReloadInto(store *placement.Store) (*placement.Config, error) {
	mu.Lock()
	defer mu.Unlock()

	cfg, err := reload()
	if err != nil {
		return nil, err
	}
	store.Swap(cfg)
	return cfg, nil
}

func reload() (*placement.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return nil, fmt.Errorf("config not loaded")
	}
	if err := prepareFile(path); err != nil {
		return nil, err
	}
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}
	return limitConfig(), nil
}

// Watch reloads into store whenever the config file changes on disk.
// onChange receives either the published config or the reload error.
func Watch(store *placement.Store, onChange func(*placement.Config, error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(ReloadInto(store))
	})
	viper.WatchConfig()
}

// prepareFile migrates and validates the raw document at path.
func prepareFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if migrated, changed := Migrate(doc); changed {
		if err := writeJSON(path, migrated); err != nil {
			return fmt.Errorf("error writing migrated config: %w", err)
		}
		doc = migrated
	}

	return Validate(doc)
}

// Validate checks a decoded config document against the schema.
func Validate(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	// the validator expects plain JSON values
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func writeJSON(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetLimitConfig builds an immutable limit snapshot from the loaded values.
// When limit.maxNearby is absent the snapshot is Unlimited.
func GetLimitConfig() *placement.Config {
	mu.RLock()
	defer mu.RUnlock()
	return limitConfig()
}

func limitConfig() *placement.Config {
	cfg := placement.NewConfig(
		viper.GetInt("limit.maxNearby"),
		viper.GetFloat64("limit.checkRadius"),
		viper.GetStringSlice("limit.restrictedKinds"),
	)
	cfg.Unlimited = !viper.IsSet("limit.maxNearby")
	cfg.FailClosed = viper.GetBool("limit.failClosed")
	cfg.Version = viper.GetString("version")
	return cfg
}

// GetWorldConfig returns the world snapshot settings.
func GetWorldConfig() WorldConfig {
	mu.RLock()
	defer mu.RUnlock()

	var wc WorldConfig
	if err := viper.UnmarshalKey("world", &wc); err != nil {
		return WorldConfig{CellSize: 16, RequireSync: true}
	}
	return wc
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	mu.RLock()
	defer mu.RUnlock()
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	mu.RLock()
	defer mu.RUnlock()
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	mu.RLock()
	defer mu.RUnlock()
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return viper.GetBool(key)
}

// GetStringSlice returns a string slice config value.
func GetStringSlice(key string) []string {
	mu.RLock()
	defer mu.RUnlock()
	return viper.GetStringSlice(key)
}
