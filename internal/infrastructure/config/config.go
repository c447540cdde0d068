// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazlijohar95/bankfeed/internal/domain/matcher"
)

// Config represents the entire application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MatchingConfig holds the matching thresholds. Zero values fall back to the
// matcher defaults so a config file can set only the thresholds it cares
// about.
type MatchingConfig struct {
	NameThreshold        float64 `yaml:"name_threshold"`
	AmountThreshold      float64 `yaml:"amount_threshold"`
	AutoSuggestThreshold float64 `yaml:"auto_suggest_threshold"`
	MaxSuggestions       int     `yaml:"max_suggestions"`
}

// MatcherConfig converts the YAML section into the matcher's config,
// filling gaps from the defaults.
func (m MatchingConfig) MatcherConfig() matcher.Config {
	cfg := matcher.DefaultConfig()
	if m.NameThreshold > 0 {
		cfg.NameThreshold = m.NameThreshold
	}
	if m.AmountThreshold > 0 {
		cfg.AmountThreshold = m.AmountThreshold
	}
	if m.AutoSuggestThreshold > 0 {
		cfg.AutoSuggestThreshold = m.AutoSuggestThreshold
	}
	if m.MaxSuggestions > 0 {
		cfg.MaxSuggestions = m.MaxSuggestions
	}
	return cfg
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${BANKFEED_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("BANKFEED_PORT", 8080),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("BANKFEED_DB_PATH", "bankfeed.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "bankfeed.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
