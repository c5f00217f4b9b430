// Package config handles loading and managing ochazuke configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for ochazuke.
type Config struct {
	Repo    string        `yaml:"repo"`
	Polling PollingConfig `yaml:"polling"`
	Archive ArchiveConfig `yaml:"archive"`
}

// PollingConfig controls the scheduled GitHub API polling jobs.
type PollingConfig struct {
	// Categories maps a dashboard category to its GitHub milestone number
	// (e.g. needsdiagnosis -> 3).
	Categories map[string]int `yaml:"categories"`
	// TimeoutSeconds bounds each GitHub API round-trip.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ArchiveConfig controls where rendered timeline documents are archived.
type ArchiveConfig struct {
	Backend   string `yaml:"backend"` // local, s3 or gcs
	LocalPath string `yaml:"local_path"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Repo: "webcompat/web-bugs",
		Polling: PollingConfig{
			Categories: map[string]int{
				"needsdiagnosis": 3,
			},
			TimeoutSeconds: 240,
		},
		Archive: ArchiveConfig{
			Backend:   "local",
			LocalPath: "/tmp/ochazuke-data",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Archive.Backend {
	case "", "local":
	case "s3", "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive backend %q requires a bucket", c.Archive.Backend)
		}
	default:
		return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
	}
	if c.Repo == "" {
		return fmt.Errorf("repo must not be empty")
	}
	return nil
}
