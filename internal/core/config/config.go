// Package config handles configuration loading and validation for calcifer.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig tunes the sqlite connection pool.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// Config holds the application configuration.
type Config struct {
	// RepoDir is the root of the managed git working tree. Every work item
	// branch lives in this one repository.
	RepoDir string `yaml:"repo_dir"`
	// Trunk is the stable integration branch work items merge into.
	Trunk string `yaml:"trunk"`
	// ChangeLog is the change-log file path relative to RepoDir.
	ChangeLog string `yaml:"change_log"`
	// Author is recorded in change-log entries.
	Author string `yaml:"author"`

	GitPath string `yaml:"git_path"`
	// LockTimeout bounds how long a tree-mutating operation waits for the
	// repository lock before failing with a resource-locked error.
	LockTimeout time.Duration  `yaml:"lock_timeout"`
	Database    DatabaseConfig `yaml:"database"`

	DataDir string `yaml:"-"` // set by caller, not from config file
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Trunk:       "main",
		ChangeLog:   "docs/CHANGES.md",
		Author:      "System",
		GitPath:     "git",
		LockTimeout: 10 * time.Second,
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			BusyTimeout:  5000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the
// provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	if cfg.RepoDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.RepoDir = wd
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
