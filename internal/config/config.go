package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/margin/internal/logging"
	"github.com/spf13/viper"
)

// Config represents the complete margin configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
	Import  ImportConfig  `mapstructure:"import" yaml:"import"`
}

// StorageConfig selects and configures the notes backend
type StorageConfig struct {
	// Backend is the persistence backend (default: "json")
	// Options: "json", "sqlite", "memory"
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Dir is the directory for the json backend. Supports ~ expansion.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// SQLitePath is the database file for the sqlite backend. Supports ~ expansion.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	// LockTimeoutMs bounds how long a json write waits for another margin
	// process holding the directory lock (default: 5000)
	LockTimeoutMs int `mapstructure:"lock_timeout_ms" yaml:"lock_timeout_ms"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logs are written to Dir (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where margin.log is written. Supports ~ expansion.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// ExportConfig controls snapshot export
type ExportConfig struct {
	// Format is the default snapshot format: "json" or "yaml" (default: "json")
	Format string `mapstructure:"format" yaml:"format"`
	// Indent is the number of spaces used to indent JSON output; 0 is compact (default: 2)
	Indent int `mapstructure:"indent" yaml:"indent"`
}

// ImportConfig controls snapshot import
type ImportConfig struct {
	// Parallel is how many resource keys are applied concurrently (default: 4)
	Parallel int `mapstructure:"parallel" yaml:"parallel"`
}

// Backend names accepted by storage.backend
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// LockTimeout returns LockTimeoutMs as a duration.
func (c *StorageConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// ResolvedDir returns Dir with ~ expanded.
func (c *StorageConfig) ResolvedDir() string {
	return ExpandHome(c.Dir)
}

// ResolvedSQLitePath returns SQLitePath with ~ expanded.
func (c *StorageConfig) ResolvedSQLitePath() string {
	return ExpandHome(c.SQLitePath)
}

// ResolvedDir returns Dir with ~ expanded.
func (c *LoggingConfig) ResolvedDir() string {
	return ExpandHome(c.Dir)
}

// IndentString returns the JSON indent unit for Indent.
func (c *ExportConfig) IndentString() string {
	if c.Indent <= 0 {
		return ""
	}
	return strings.Repeat(" ", c.Indent)
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	dataDir := DataDir()
	rotation := logging.DefaultRotationConfig()
	return &Config{
		Storage: StorageConfig{
			Backend:       BackendJSON,
			Dir:           filepath.Join(dataDir, "notes"),
			SQLitePath:    filepath.Join(dataDir, "notes.db"),
			LockTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        filepath.Join(dataDir, "logs"),
			MaxSizeMB:  rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			Compress:   rotation.Compress,
		},
		Export: ExportConfig{
			Format: "json",
			Indent: 2,
		},
		Import: ImportConfig{
			Parallel: 4,
		},
	}
}

// SetDefaults registers default values with the global viper instance
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn registers default values with v
func SetDefaultsOn(v *viper.Viper) {
	defaults := Default()

	// Storage defaults
	v.SetDefault("storage.backend", defaults.Storage.Backend)
	v.SetDefault("storage.dir", defaults.Storage.Dir)
	v.SetDefault("storage.sqlite_path", defaults.Storage.SQLitePath)
	v.SetDefault("storage.lock_timeout_ms", defaults.Storage.LockTimeoutMs)

	// Logging defaults
	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)

	// Export/import defaults
	v.SetDefault("export.format", defaults.Export.Format)
	v.SetDefault("export.indent", defaults.Export.Indent)
	v.SetDefault("import.parallel", defaults.Import.Parallel)
}

// Load reads the configuration from the global viper instance and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v into a Config struct and validates it
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "margin")
	}
	// Fall back to ~/.config/margin
	home, err := os.UserHomeDir()
	if err != nil {
		return ".margin"
	}
	return filepath.Join(home, ".config", "margin")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the directory margin stores notes and logs under
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "margin")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".margin"
	}
	return filepath.Join(home, ".local", "share", "margin")
}

// ValidBackends returns the list of valid storage backends
func ValidBackends() []string {
	return []string{BackendJSON, BackendSQLite, BackendMemory}
}
