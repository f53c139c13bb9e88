// Package config loads orchestrator configuration from an optional YAML
// file, a ".env" overlay, and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Backend  BackendConfig  `yaml:"backend"`
	RefIndex RefIndexConfig `yaml:"reference_index"`
	LLM      LLMConfig      `yaml:"llm"`
	Storage  StorageConfig  `yaml:"storage"`
	Workers  WorkerConfig   `yaml:"workers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds catalog store connection settings. URL empty
// means "run memory-only" — the process still starts.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// BackendConfig points at the generative backend (the node-graph
// executor).
type BackendConfig struct {
	URL string `yaml:"url"`
}

// RefIndexConfig points at the reference (vector) index.
type RefIndexConfig struct {
	URL string `yaml:"url"`
}

// LLMConfig points at the LLM collaborator endpoint.
type LLMConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig controls where organized output artifacts land.
type StorageConfig struct {
	OutputDir    string `yaml:"output_dir"`
	OrganizedDir string `yaml:"organized_dir"`
}

// WorkerConfig sizes the generation worker pool.
type WorkerConfig struct {
	PoolSize int `yaml:"pool_size"`
}

func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Backend:  BackendConfig{URL: "http://127.0.0.1:8188"},
		RefIndex: RefIndexConfig{URL: "http://127.0.0.1:6333"},
		LLM:      LLMConfig{URL: "http://127.0.0.1:9000"},
		Storage: StorageConfig{
			OutputDir:    "./output",
			OrganizedDir: "./organized",
		},
		Workers: WorkerConfig{PoolSize: 3},
	}
}

// Load reads a YAML configuration file at path, applies a ".env"
// overlay if present, then applies environment variable overrides, and
// returns the resulting Config. A missing file is not an error; it
// falls back to compiled-in defaults before overrides are applied.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// .env is optional local-dev sugar; godotenv.Load silently returns
	// an error when the file is absent, which we ignore.
	_ = godotenv.Load()

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault tries "config.yaml" in the current directory, falling
// back to compiled-in defaults plus environment overrides.
func LoadDefault() (*Config, error) {
	return Load("config.yaml")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STORYFORGE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("STORYFORGE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("REFERENCE_INDEX_URL"); v != "" {
		cfg.RefIndex.URL = v
	}
	if v := os.Getenv("LLM_URL"); v != "" {
		cfg.LLM.URL = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Storage.OutputDir = v
	}
	if v := os.Getenv("ORGANIZED_DIR"); v != "" {
		cfg.Storage.OrganizedDir = v
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers.PoolSize = n
		}
	}
}

// Timeouts used across components, fixed by design rather than
// user-configurable: they express protocol bounds, not deployment
// tuning.
const (
	IntentLLMTimeout      = 60 * time.Second
	NarrativeLLMTimeout   = 120 * time.Second
	BackendSubmitTimeout  = 30 * time.Second
	BackendHistoryTimeout = 5 * time.Second
	BackendHealthTimeout  = 5 * time.Second
	ImageJobWallClock     = 120 * time.Second
	VideoJobWallClock     = 300 * time.Second
	StatusPollInterval    = 2 * time.Second
)
