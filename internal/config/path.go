// Package config loads the yieldcast configuration through viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "yieldcast"

// ConfigDir is where config.yaml and the Sheets token live by default.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir is the default home of the database and model artifacts.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

// DataPath joins elem onto DataDir.
func DataPath(elem ...string) string {
	return filepath.Join(append([]string{DataDir()}, elem...)...)
}

// ExpandPath expands $VAR references and a leading ~ in path. Anything that
// is not a filesystem path, such as ":memory:", passes through unchanged.
func ExpandPath(path string) string {
	if path == "" || strings.HasPrefix(path, ":") {
		return path
	}

	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return filepath.Clean(path)
}
