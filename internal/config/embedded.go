package config

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/owlcms/recorder/internal/logging"
)

//go:embed default.toml
var defaultConfig []byte

// ExtractDefaultConfig writes the embedded config file if none exists
func ExtractDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		return err
	}
	logging.InfoLogger.Printf("No config file found at %s, creating default", configPath)
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(configPath, defaultConfig, 0644)
}
