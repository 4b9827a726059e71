package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
)

// Validate performs structural validation of the configuration.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("trunk", c.Trunk, nonEmpty),
		criterio.Run("change_log", c.ChangeLog, relativePath),
		criterio.Run("git_path", c.GitPath, nonEmpty),
		criterio.Run("lock_timeout", c.LockTimeout, positiveDuration),
	)
}

// ValidateDeep adds I/O checks on top of Validate: repo directory and git
// executable existence.
func (c *Config) ValidateDeep() error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		criterio.Run("repo_dir", c.RepoDir, isDirectory),
		criterio.Run("git_path", c.GitPath, gitExecutableExists),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func relativePath(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	if filepath.IsAbs(s) {
		return fmt.Errorf("must be relative to repo_dir")
	}
	return nil
}

func positiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func isDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}

func isDirectoryOrNotExist(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // created on demand
	}
	if err != nil {
		return fmt.Errorf("not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}

func gitExecutableExists(path string) error {
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("git executable not found: %w", err)
	}
	return nil
}
