// Package commands implements the calcifer CLI commands.
package commands

import (
	"os"
	"path/filepath"

	"github.com/calciferhq/calcifer/internal/core/config"
	"github.com/calciferhq/calcifer/internal/printer"
	"github.com/calciferhq/calcifer/internal/work"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Service orchestrates all work item operations
	Service *work.WorkService

	// Printer renders user-facing terminal output
	Printer *printer.Printer
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "calcifer", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "calcifer")
}
