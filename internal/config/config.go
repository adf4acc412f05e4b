// Package config resolves the CLI's settings: a per-user YAML file, an
// optional .env file in the working directory, and environment variables,
// in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/recallhq/recall/internal/logging"
)

// Config holds everything the commands need beyond flags.
type Config struct {
	// Token is the bearer credential presented to the key service.
	Token string `yaml:"token,omitempty"`
	// KeyEndpoint is the key-resolution service URL.
	KeyEndpoint string `yaml:"key_endpoint,omitempty"`
	// SummarizeEndpoint is the optional transcript summarization URL.
	SummarizeEndpoint string `yaml:"summarize_endpoint,omitempty"`
	// Author identifies the current user in session paths and events.
	Author string `yaml:"author,omitempty"`
	// Tool names the AI assistant whose transcripts are imported.
	Tool string `yaml:"tool,omitempty"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".recall", "config.yaml"), nil
}

// Load reads the config file at path (missing file is fine), then applies
// .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// A .env in the working directory is a convenience for local setups.
	if err := godotenv.Load(); err == nil {
		logging.Debug("loaded .env overrides")
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RECALL_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("RECALL_KEY_ENDPOINT"); v != "" {
		cfg.KeyEndpoint = v
	}
	if v := os.Getenv("RECALL_SUMMARIZE_ENDPOINT"); v != "" {
		cfg.SummarizeEndpoint = v
	}
	if v := os.Getenv("RECALL_AUTHOR"); v != "" {
		cfg.Author = v
	}
	if v := os.Getenv("RECALL_TOOL"); v != "" {
		cfg.Tool = v
	}
}

// Save writes the config file, creating its directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
