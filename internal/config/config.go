// Package config provides configuration management for the ledger application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"harvest-ledger/internal/errors"
)

// AppName names the config directory and log file.
const AppName = "harvest-ledger"

// DefaultStorageKey is the fixed key the ledger state is stored under.
const DefaultStorageKey = "bitcoin-trade-tracker"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Import  ImportConfig  `mapstructure:"import"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
}

// StorageConfig selects and locates the key-value persistence backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, file, memory
	Path   string `mapstructure:"path"`   // database file or directory
	Key    string `mapstructure:"key"`
}

// ImportConfig holds settlement import configuration.
type ImportConfig struct {
	CostBasisRatio  string `mapstructure:"cost_basis_ratio"`
	DefaultFromPool bool   `mapstructure:"default_from_pool"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// UIConfig holds CLI output configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	Currency     string `mapstructure:"currency"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", AppName)
	}
	return filepath.Join(home, ".config", AppName)
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by a template and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// A .env next to the working directory may carry overrides.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Log.FilePath = expandHome(cfg.Log.FilePath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default(configDir string) *Config {
	v := viper.New()
	setDefaults(v, configDir)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", filepath.Join(configDir, "ledger.db"))
	v.SetDefault("storage.key", DefaultStorageKey)

	v.SetDefault("import.cost_basis_ratio", "0.95")
	v.SetDefault("import.default_from_pool", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "harvest.log"))
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.currency", "USD")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HARVEST_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("HARVEST_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("HARVEST_STORAGE_KEY"); v != "" {
		cfg.Storage.Key = v
	}
	if v := os.Getenv("HARVEST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HARVEST_COST_BASIS_RATIO"); v != "" {
		cfg.Import.CostBasisRatio = v
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverFile:
		if c.Storage.Path == "" {
			return errors.Wrapf(errors.ErrConfigInvalid, "storage.path is required for driver %q", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return errors.Wrapf(errors.ErrConfigInvalid, "invalid storage.driver: %s (must be 'sqlite', 'file' or 'memory')", c.Storage.Driver)
	}
	if c.Storage.Key == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "storage.key must not be empty")
	}

	ratio, err := c.Import.Ratio()
	if err != nil {
		return err
	}
	if !ratio.IsPositive() || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Wrap(errors.ErrConfigInvalid, "import.cost_basis_ratio must be in (0, 1]")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(errors.ErrConfigInvalid, "invalid log.level: %s", c.Log.Level)
	}

	return nil
}

// Ratio parses the configured provisional cost-basis ratio.
func (c ImportConfig) Ratio() (decimal.Decimal, error) {
	ratio, err := decimal.NewFromString(c.CostBasisRatio)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrConfigInvalid, "import.cost_basis_ratio %q", c.CostBasisRatio)
	}
	return ratio, nil
}
