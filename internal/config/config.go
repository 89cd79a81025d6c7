package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvPort           = "PORT"
	EnvStorageBackend = "STORAGE_BACKEND"
	EnvDBConnection   = "DB_CONNECTION"
	EnvSessionSecret  = "SESSION_SECRET"
	EnvSessionExpiry  = "SESSION_EXPIRY"
	EnvSessionSweep   = "SESSION_SWEEP_INTERVAL"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
	EnvOpenAIModel    = "OPENAI_MODEL"
)

// Storage backend identifiers accepted in config.
const (
	// StorageMemory keeps all state in process-local maps.
	StorageMemory = "memory"
	// StorageDatabase persists state through GORM.
	StorageDatabase = "database"
)

// Defaults applied when the config file and environment omit a value.
const (
	defaultPort            = 8080
	defaultSessionExpiry   = 30 * 24 * time.Hour
	defaultSweepInterval   = 24 * time.Hour
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModel     = "gpt-4o"
	defaultAnalysisTimeout = 60 * time.Second
)

// SessionConfig holds session cookie signing and lifetime settings.
type SessionConfig struct {
	Secret        string        `yaml:"secret"`
	Expiry        time.Duration `yaml:"expiry"`
	SweepInterval time.Duration `yaml:"sweep-interval"`
}

// OpenAIConfig holds settings for the code analysis provider.
type OpenAIConfig struct {
	APIKey  string        `yaml:"api-key"`
	BaseURL string        `yaml:"base-url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config holds resolved application configuration values.
type Config struct {
	Port    int    `yaml:"port"`
	Storage string `yaml:"storage"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Session SessionConfig `yaml:"session"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file, applies environment overrides and
// defaults. A missing config file is not an error; the environment alone can
// carry a full configuration.
func Load(configPath string) (Config, error) {
	var cfg Config

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Storage != StorageMemory && cfg.Storage != StorageDatabase {
		return Config{}, fmt.Errorf("invalid storage backend: %q", cfg.Storage)
	}
	if cfg.Storage == StorageDatabase && strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, fmt.Errorf("storage backend %q requires a database dsn", StorageDatabase)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		if port, errParse := strconv.Atoi(raw); errParse == nil && port > 0 {
			cfg.Port = port
		}
	}
	if backend := strings.TrimSpace(os.Getenv(EnvStorageBackend)); backend != "" {
		cfg.Storage = backend
	}
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvSessionSecret)); secret != "" {
		cfg.Session.Secret = secret
	}
	if raw := strings.TrimSpace(os.Getenv(EnvSessionExpiry)); raw != "" {
		if expiry, errParse := time.ParseDuration(raw); errParse == nil && expiry > 0 {
			cfg.Session.Expiry = expiry
		}
	}
	if raw := strings.TrimSpace(os.Getenv(EnvSessionSweep)); raw != "" {
		if interval, errParse := time.ParseDuration(raw); errParse == nil && interval > 0 {
			cfg.Session.SweepInterval = interval
		}
	}
	if key := strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey)); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if base := strings.TrimSpace(os.Getenv(EnvOpenAIBaseURL)); base != "" {
		cfg.OpenAI.BaseURL = base
	}
	if model := strings.TrimSpace(os.Getenv(EnvOpenAIModel)); model != "" {
		cfg.OpenAI.Model = model
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.Storage) == "" {
		if strings.TrimSpace(cfg.Database.DSN) != "" {
			cfg.Storage = StorageDatabase
		} else {
			cfg.Storage = StorageMemory
		}
	}
	if cfg.Session.Expiry <= 0 {
		cfg.Session.Expiry = defaultSessionExpiry
	}
	if cfg.Session.SweepInterval <= 0 {
		cfg.Session.SweepInterval = defaultSweepInterval
	}
	if strings.TrimSpace(cfg.OpenAI.BaseURL) == "" {
		cfg.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(cfg.OpenAI.Model) == "" {
		cfg.OpenAI.Model = defaultOpenAIModel
	}
	if cfg.OpenAI.Timeout <= 0 {
		cfg.OpenAI.Timeout = defaultAnalysisTimeout
	}
}
