package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the data directory under the user's home.
	DefaultDirName = ".expense-tracker"
	// ConfigFileName is the optional user override file inside the data dir.
	ConfigFileName = "config.json"
	// CredentialsFileName holds the mail-provider OAuth client credentials.
	CredentialsFileName = "credentials.json"
	// TokenFileName holds the auto-managed refreshable OAuth token.
	TokenFileName = "token.json"
	// DBFileName is the local store file.
	DBFileName = "data.db"
	// EnvDBPath overrides the store location when set.
	EnvDBPath = "EXPENSE_TRACKER_DB"
)

// DefaultDir returns the default data directory (~/.expense-tracker).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// EnsureDir creates the data directory if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// Load loads configuration for the given data directory: defaults, then
// config.json merged on top when present, then validation.
func Load(dir string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	config := DefaultConfig()

	path := ConfigPath(dir)
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadFromFile(path)
		if err != nil {
			logger.Warn("Failed to load config overrides", slog.String("path", path), slog.String("error", err.Error()))
		} else {
			logger.Debug("Loaded config overrides", slog.String("path", path))
			config = loaded
		}
	} else {
		logger.Debug("No config overrides found", slog.String("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ConfigPath returns the override file path for a data directory.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// CredentialsPath returns the OAuth client credentials path.
func CredentialsPath(dir string) string {
	return filepath.Join(dir, CredentialsFileName)
}

// TokenPath returns the OAuth token path.
func TokenPath(dir string) string {
	return filepath.Join(dir, TokenFileName)
}

// DBPath returns the store path for a data directory. The EXPENSE_TRACKER_DB
// environment variable takes precedence when set.
func DBPath(dir string) string {
	if env := os.Getenv(EnvDBPath); env != "" {
		return env
	}
	return filepath.Join(dir, DBFileName)
}
