package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/timex"
	"github.com/joeshaw/envdecode"
	"github.com/pelletier/go-toml/v2"
)

// Config holds runtime settings for videoctl.
//
// Timeout bounds API calls only; uploads to the signed URL are bounded by
// the URL's own expiry. StatePath is the local SQLite file holding saved
// tokens and upload history; empty disables it.
type Config struct {
	ServerURL string        `env:"VIDEOFEED_SERVER_URL"`
	Token     string        `env:"VIDEOFEED_TOKEN"`
	Timeout   time.Duration `env:"VIDEOFEED_CLIENT_TIMEOUT"`
	StatePath string        `env:"VIDEOFEED_STATE_PATH"`
}

type fileConfig struct {
	ServerURL string         `json:"server_url" toml:"server_url"`
	Token     string         `json:"token" toml:"token"`
	Timeout   timex.Duration `json:"timeout" toml:"timeout"`
	StatePath string         `json:"state_path" toml:"state_path"`
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Token = ""
	c.Timeout = 30 * time.Second
	c.StatePath = defaultStatePath()
}

// userConfigDir is a test seam for os.UserConfigDir.
var userConfigDir = os.UserConfigDir

func defaultStatePath() string {
	dir, err := userConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "videoctl", "state.db")
}

// Load applies defaults, the environment and, when path is not empty, the
// config file at path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	fc := &fileConfig{
		ServerURL: cfg.ServerURL,
		Token:     cfg.Token,
		Timeout:   timex.Duration{Duration: cfg.Timeout},
		StatePath: cfg.StatePath,
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, fc)
	} else {
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.ServerURL = fc.ServerURL
	cfg.Token = fc.Token
	cfg.Timeout = fc.Timeout.Duration
	cfg.StatePath = fc.StatePath
	return cfg, nil
}
