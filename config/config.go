// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Preference store backends
const (
	PrefsMemory     = "memory"
	PrefsFile       = "file"
	PrefsRedis      = "redis"
	PrefsSQLite     = "sqlite"
	PrefsPostgreSQL = "postgresql"
	PrefsMongoDB    = "mongodb"
)

// Generation backends
const (
	BackendREST  = "rest"
	BackendGenAI = "genai"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Prefs   PrefsConfig
	Catalog CatalogConfig
	Logging LoggingConfig
	Metrics MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string
	MasterKey     string // empty disables authentication
	BodySizeLimit string
}

// GeminiConfig holds upstream catalog and generation settings
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	Backend      string // "rest" or "genai"
	DefaultModel string
	// RequestsPerSecond throttles outbound calls; 0 disables.
	RequestsPerSecond float64
}

// PrefsConfig selects and configures the per-caller preference store
type PrefsConfig struct {
	Backend    string
	FilePath   string
	Redis      RedisConfig
	SQLite     SQLiteConfig
	PostgreSQL PostgreSQLConfig
	MongoDB    MongoDBConfig
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL       string
	KeyPrefix string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// PostgreSQLConfig holds PostgreSQL settings
type PostgreSQLConfig struct {
	URL      string
	MaxConns int
}

// MongoDBConfig holds MongoDB settings
type MongoDBConfig struct {
	URL      string
	Database string
}

// CatalogConfig holds catalog filtering settings
type CatalogConfig struct {
	RulesFile string
	// Exclusions is nil unless RulesFile was set; callers fall back to the built-in vocabulary.
	Exclusions []ExclusionRule
}

// ExclusionRule is one entry of the catalog rules file.
type ExclusionRule struct {
	Substring string `yaml:"substring"`
	// Field is "id", "display_name", or "any" (default).
	Field string `yaml:"field"`
}

type rulesFile struct {
	Exclusions []ExclusionRule `yaml:"exclusions"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Format string // "json" or "text"
	Level  string
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// Load reads configuration from an optional .env file and the environment
func Load() (*Config, error) {
	// Optional; a missing .env is not an error
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BODY_SIZE_LIMIT", "1M")
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("GENERATION_BACKEND", BackendREST)
	viper.SetDefault("DEFAULT_MODEL", "gemini-2.5-flash")
	viper.SetDefault("UPSTREAM_RPS", 0)
	viper.SetDefault("PREFS_BACKEND", PrefsFile)
	viper.SetDefault("PREFS_FILE", "data/prefs.json")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("REDIS_KEY_PREFIX", "modelgate:prefs:")
	viper.SetDefault("SQLITE_PATH", "data/modelgate.db")
	viper.SetDefault("POSTGRES_MAX_CONNS", 4)
	viper.SetDefault("MONGODB_DATABASE", "modelgate")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("METRICS_ENDPOINT", "/metrics")

	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:          viper.GetString("PORT"),
			MasterKey:     viper.GetString("MODELGATE_MASTER_KEY"),
			BodySizeLimit: viper.GetString("BODY_SIZE_LIMIT"),
		},
		Gemini: GeminiConfig{
			APIKey:            viper.GetString("GEMINI_API_KEY"),
			BaseURL:           strings.TrimRight(viper.GetString("GEMINI_BASE_URL"), "/"),
			Backend:           strings.ToLower(viper.GetString("GENERATION_BACKEND")),
			DefaultModel:      viper.GetString("DEFAULT_MODEL"),
			RequestsPerSecond: viper.GetFloat64("UPSTREAM_RPS"),
		},
		Prefs: PrefsConfig{
			Backend:  strings.ToLower(viper.GetString("PREFS_BACKEND")),
			FilePath: viper.GetString("PREFS_FILE"),
			Redis: RedisConfig{
				URL:       viper.GetString("REDIS_URL"),
				KeyPrefix: viper.GetString("REDIS_KEY_PREFIX"),
			},
			SQLite: SQLiteConfig{
				Path: viper.GetString("SQLITE_PATH"),
			},
			PostgreSQL: PostgreSQLConfig{
				URL:      viper.GetString("POSTGRES_URL"),
				MaxConns: viper.GetInt("POSTGRES_MAX_CONNS"),
			},
			MongoDB: MongoDBConfig{
				URL:      viper.GetString("MONGODB_URL"),
				Database: viper.GetString("MONGODB_DATABASE"),
			},
		},
		Catalog: CatalogConfig{
			RulesFile: viper.GetString("CATALOG_RULES_FILE"),
		},
		Logging: LoggingConfig{
			Format: strings.ToLower(viper.GetString("LOG_FORMAT")),
			Level:  strings.ToLower(viper.GetString("LOG_LEVEL")),
		},
		Metrics: MetricsConfig{
			Enabled:  viper.GetBool("METRICS_ENABLED"),
			Endpoint: viper.GetString("METRICS_ENDPOINT"),
		},
	}

	switch cfg.Prefs.Backend {
	case PrefsMemory, PrefsFile, PrefsRedis, PrefsSQLite, PrefsPostgreSQL, PrefsMongoDB:
	default:
		return nil, fmt.Errorf("unknown PREFS_BACKEND %q (valid: memory, file, redis, sqlite, postgresql, mongodb)", cfg.Prefs.Backend)
	}

	switch cfg.Gemini.Backend {
	case BackendREST, BackendGenAI:
	default:
		return nil, fmt.Errorf("unknown GENERATION_BACKEND %q (valid: rest, genai)", cfg.Gemini.Backend)
	}

	if cfg.Catalog.RulesFile != "" {
		rules, err := LoadRulesFile(cfg.Catalog.RulesFile)
		if err != nil {
			return nil, err
		}
		cfg.Catalog.Exclusions = rules
	}

	return cfg, nil
}

// LoadRulesFile reads a YAML exclusion vocabulary
func LoadRulesFile(path string) ([]ExclusionRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog rules file: %w", err)
	}

	var parsed rulesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog rules file: %w", err)
	}

	rules := make([]ExclusionRule, 0, len(parsed.Exclusions))
	for i, r := range parsed.Exclusions {
		if strings.TrimSpace(r.Substring) == "" {
			return nil, fmt.Errorf("catalog rules file: exclusion %d has an empty substring", i)
		}
		switch r.Field {
		case "":
			r.Field = "any"
		case "id", "display_name", "any":
		default:
			return nil, fmt.Errorf("catalog rules file: exclusion %d has unknown field %q", i, r.Field)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
