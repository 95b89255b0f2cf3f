// Package config loads the client configuration from YAML with environment
// overrides
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kass/go-pinmap/pkg/viewport"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "config.yaml"
	examplePath    = "config.yaml.example"
	defaultTimeout = 10000
	defaultStyle   = "mapbox://styles/i53o2tqmjs/cm0xx7fbz01ul01rg60u68qh2"
)

// Environment overrides
const (
	EnvAPIURL        = "PINMAP_API_URL"
	EnvAccessToken   = "PINMAP_ACCESS_TOKEN"
	EnvStorePath     = "PINMAP_STORE_PATH"
	EnvLogFile       = "PINMAP_LOG_FILE"
	EnvLogLevel      = "PINMAP_LOG_LEVEL"
	EnvRequireRating = "PINMAP_REQUIRE_RATING"
)

// Config structure for YAML configuration
type Config struct {
	API struct {
		BaseURL   string `yaml:"base_url"`
		TimeoutMs int    `yaml:"timeout_ms"`
	} `yaml:"api"`
	Map struct {
		Style       string  `yaml:"style"`
		AccessToken string  `yaml:"access_token"`
		Latitude    float64 `yaml:"latitude"`
		Longitude   float64 `yaml:"longitude"`
		Zoom        float64 `yaml:"zoom"`
	} `yaml:"map"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Log struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"log"`
	Editor struct {
		RequireRating bool `yaml:"require_rating"`
	} `yaml:"editor"`

	// Source is the file the config was read from, empty for defaults
	Source string `yaml:"-"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8800/api"
	cfg.API.TimeoutMs = defaultTimeout
	cfg.Map.Style = defaultStyle
	cfg.Map.Latitude = viewport.Default.Latitude
	cfg.Map.Longitude = viewport.Default.Longitude
	cfg.Map.Zoom = viewport.Default.Zoom
	cfg.Storage.Path = "data/pinmap.db"
	cfg.Log.File = "pinmap.log"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads path, falling back to config.yaml.example next to it and then
// to the defaults. A .env file in the working directory feeds the
// environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	for _, candidate := range []string{path, filepath.Join(filepath.Dir(path), examplePath)} {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", candidate, err)
		}
		cfg.Source = candidate
		break
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvAccessToken); v != "" {
		c.Map.AccessToken = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		c.Storage.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		c.Log.File = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvRequireRating); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRequireRating, err)
		}
		c.Editor.RequireRating = b
	}
	return nil
}

// Viewport returns the initial map camera
func (c *Config) Viewport() viewport.Viewport {
	return viewport.Viewport{
		Latitude:  c.Map.Latitude,
		Longitude: c.Map.Longitude,
		Zoom:      c.Map.Zoom,
	}
}

// Timeout returns the per-request timeout
func (c *Config) Timeout() time.Duration {
	if c.API.TimeoutMs <= 0 {
		return defaultTimeout * time.Millisecond
	}
	return time.Duration(c.API.TimeoutMs) * time.Millisecond
}
