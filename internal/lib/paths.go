package lib

import (
	"os"
	"path/filepath"
)

const (
	// ConfigDirEnv overrides the foxglove config directory (for testing).
	ConfigDirEnv = "FOX_CONFIG_DIR"

	// HomeEnv overrides the detected home directory (for testing).
	HomeEnv = "FOX_HOME"
)

// ConfigDir returns the foxglove configuration directory.
// Default: ~/.config/fox. Respects FOX_CONFIG_DIR.
func ConfigDir() string {
	if d := os.Getenv(ConfigDirEnv); d != "" {
		return d
	}
	return filepath.Join(HomeDir(), ".config", "fox")
}

// HomeDir returns the user home directory, honoring the FOX_HOME override.
// Falls back to "." so callers produce relative paths rather than "".
func HomeDir() string {
	if h := os.Getenv(HomeEnv); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// StatePath returns the default change-ledger location.
func StatePath() string {
	return filepath.Join(ConfigDir(), "state.toml")
}

// GatewaysPath returns the default custom gateway profiles location.
func GatewaysPath() string {
	return filepath.Join(ConfigDir(), "gateways.yaml")
}
