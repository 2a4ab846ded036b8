package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/owlcms/recorder/internal/logging"
)

// Config is the content of config.toml.
type Config struct {
	Port              int            `toml:"port"`
	VideoDir          string         `toml:"videoDir"`
	Verbose           bool           `toml:"verbose"`
	Headless          bool           `toml:"headless"`
	QueueSize         int            `toml:"queueSize"`
	FirstFrameTimeout Duration       `toml:"firstFrameTimeout"`
	StatsInterval     Duration       `toml:"statsInterval"`
	MQTTBroker        string         `toml:"mqttBroker"`
	MQTTTopic         string         `toml:"mqttTopic"`
	Players           []PlayerConfig `toml:"players"`
}

// InstallDir is where the configuration, logs and default recordings live.
func InstallDir() string {
	if dir := os.Getenv("RECORDER_HOME"); dir != "" {
		return dir
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, "Library", "Application Support")
		}
	default:
		if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, ".local", "share")
		}
	}
	if base == "" {
		base = "."
	}
	return filepath.Join(base, "owlcms-recorder")
}

// LoadConfig reads path and fills in defaults for everything left out.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	logging.InfoLogger.Printf("Loaded %d player(s) from %s", len(cfg.Players), path)
	return cfg, nil
}

// SaveConfig writes cfg to path, replacing the previous file only once the new one is complete.
func SaveConfig(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Validate checks that every player can be built.
func (c *Config) Validate() error {
	names := make(map[string]bool)
	for i := range c.Players {
		p := &c.Players[i]
		if names[p.Name] {
			return fmt.Errorf("duplicate player name %q", p.Name)
		}
		names[p.Name] = true
		if err := p.Validate(); err != nil {
			return fmt.Errorf("player %q: %w", p.Name, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8091
	}
	if c.VideoDir == "" {
		c.VideoDir = filepath.Join(InstallDir(), "videos")
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.FirstFrameTimeout.Duration <= 0 {
		c.FirstFrameTimeout.Duration = 30 * time.Second
	}
	if c.StatsInterval.Duration <= 0 {
		c.StatsInterval.Duration = 2 * time.Second
	}
	if c.MQTTTopic == "" {
		c.MQTTTopic = "recorder"
	}
	for i := range c.Players {
		c.Players[i].applyDefaults(i, c.VideoDir)
	}
}
