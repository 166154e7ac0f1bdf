// Package config loads service configuration from a YAML file at an
// XDG-compatible path, with OMNI_* environment variables overriding file
// values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type StorageConfig struct {
	Backend     string // "sqlite" or "postgres"
	DataDir     string
	PostgresURL string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "omnisearch-data"
		}
	}
	return filepath.Join(dir, "omnisearch")
}

// Load reads configuration from the YAML config file and environment.
// Environment variables (OMNI_*) override file values. The Gemini API key
// is required.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: Gemini API key. " +
			"Set it via environment variable OMNI_GEMINI_API_KEY or config key gemini.api_key")
	}
	if cfg.Storage.Backend == "postgres" && cfg.Storage.PostgresURL == "" {
		return Config{}, fmt.Errorf("storage.backend is postgres but storage.postgres_url is not set")
	}

	return cfg, nil
}
