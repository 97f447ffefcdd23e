package config

import (
	"os"
	"path/filepath"
)

const appName = "romatype"

// DefaultDBPath returns the results and preferences database path.
func DefaultDBPath() string {
	return filepath.Join(appDir("XDG_DATA_HOME", ".local", "share"), appName+".db")
}

// DefaultLogPath is where the TUI logs while it owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(appDir("XDG_DATA_HOME", ".local", "share"), appName+".log")
}

// DefaultConfigPath returns the TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(appDir("XDG_CONFIG_HOME", ".config"), "config.toml")
}

// appDir resolves $envKey/romatype, or ~/<fallback...>/romatype when envKey
// is unset. Without a home directory it stays relative to the working dir.
func appDir(envKey string, fallback ...string) string {
	if base := os.Getenv(envKey); base != "" {
		return filepath.Join(base, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}
