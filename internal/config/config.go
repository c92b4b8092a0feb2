package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database    DatabaseConfig
	Categorizer CategorizerConfig
	Import      ImportConfig
	UI          UIConfig
	RefData     RefDataConfig `mapstructure:"refdata"`
	Log         LogConfig
}

// DatabaseConfig holds sqlite snapshot settings.
type DatabaseConfig struct {
	Path     string
	Snapshot bool
}

// CategorizerConfig tunes the history fallback.
type CategorizerConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	ConfidenceDamping   float64 `mapstructure:"confidence_damping"`
}

// ImportConfig tunes duplicate detection during import.
type ImportConfig struct {
	DuplicateWindowDays int     `mapstructure:"duplicate_window_days"`
	DuplicateDistance   float64 `mapstructure:"duplicate_distance"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string
}

// RefDataConfig points at the YAML file with rules, categories and accounts.
type RefDataConfig struct {
	Path string
}

// LogConfig selects the log level and output: console for humans, json
// for log shippers.
type LogConfig struct {
	Level  string
	Format string
}

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Path returns the config file location: JASKLEDGER_CONFIG or the default
// under $HOME/.config/jaskledger.
func Path() string {
	if p := os.Getenv("JASKLEDGER_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "jaskledger", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix JASKLEDGER_.
// An explicit path takes precedence over Path().
func Load(path string) (Config, error) {
	v := viper.New()

	home := os.Getenv("HOME")
	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "jaskledger", "jaskledger.db"))
	v.SetDefault("database.snapshot", false)
	v.SetDefault("categorizer.similarity_threshold", 0.6)
	v.SetDefault("categorizer.confidence_damping", 0.8)
	v.SetDefault("import.duplicate_window_days", 7)
	v.SetDefault("import.duplicate_distance", 0.4)
	v.SetDefault("ui.date_format", "02/01/2006")
	v.SetDefault("ui.currency_symbol", "€")
	v.SetDefault("ui.timezone", "Europe/Lisbon")
	v.SetDefault("refdata.path", filepath.Join(home, ".config", "jaskledger", "refdata.yaml"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", LogFormatConsole)

	v.SetConfigType("toml")
	if path == "" {
		path = Path()
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix("JASKLEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file means defaults; an unreadable one is an error
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects tunables outside their meaningful range.
func (c Config) Validate() error {
	if t := c.Categorizer.SimilarityThreshold; t < 0 || t >= 1 {
		return fmt.Errorf("categorizer.similarity_threshold %v must be within [0,1)", t)
	}
	if d := c.Categorizer.ConfidenceDamping; d <= 0 || d > 1 {
		return fmt.Errorf("categorizer.confidence_damping %v must be within (0,1]", d)
	}
	if c.Import.DuplicateWindowDays < 0 {
		return fmt.Errorf("import.duplicate_window_days must not be negative")
	}
	if d := c.Import.DuplicateDistance; d < 0 || d > 1 {
		return fmt.Errorf("import.duplicate_distance %v must be within [0,1]", d)
	}
	switch c.Log.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("log.format %q must be console or json", c.Log.Format)
	}
	return nil
}

// Save writes cfg to path (Path() when empty), creating the directory if needed.
func Save(path string, cfg Config) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.snapshot", cfg.Database.Snapshot)
	v.Set("categorizer.similarity_threshold", cfg.Categorizer.SimilarityThreshold)
	v.Set("categorizer.confidence_damping", cfg.Categorizer.ConfidenceDamping)
	v.Set("import.duplicate_window_days", cfg.Import.DuplicateWindowDays)
	v.Set("import.duplicate_distance", cfg.Import.DuplicateDistance)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("refdata.path", cfg.RefData.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
