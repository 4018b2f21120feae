package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the variable that pins the config file location.
const EnvConfigPath = "CINESYNC_CONFIG"

// DefaultPath is where `cinesync config init` writes: under
// $XDG_CONFIG_HOME, or ~/.config when that is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "cinesync", "config.toml")
}

// SearchPaths lists the candidate config files in priority order.
func SearchPaths() []string {
	return []string{"config.toml", DefaultPath(), "/etc/cinesync/config.toml"}
}

// Discover returns the config file to load. CINESYNC_CONFIG wins and must
// exist; otherwise the first existing entry of SearchPaths is used.
func Discover() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfigPath, p, err)
		}
		return p, nil
	}

	candidates := SearchPaths()
	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("config not found, checked: %s", strings.Join(candidates, ", "))
}
