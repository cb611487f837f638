// Package config loads nodemind settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// MindMapConfig holds view transform bounds and layout origin.
type MindMapConfig struct {
	MinScale  float64       `yaml:"min_scale"`
	MaxScale  float64       `yaml:"max_scale"`
	OriginX   float64       `yaml:"origin_x"`
	OriginY   float64       `yaml:"origin_y"`
	StatusTTL time.Duration `yaml:"status_ttl"`
}

// FocusConfig holds timer defaults.
type FocusConfig struct {
	DefaultMinutes int           `yaml:"default_minutes"`
	Tick           time.Duration `yaml:"tick"`
}

// Config holds all application configuration.
type Config struct {
	DBPath        string        `yaml:"db_path"`
	LogLevel      string        `yaml:"log_level"`
	Development   bool          `yaml:"development"`
	Timezone      string        `yaml:"timezone"`
	WatchExternal bool          `yaml:"watch_external"`
	MindMap       MindMapConfig `yaml:"mindmap"`
	Focus         FocusConfig   `yaml:"focus"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DBPath:   filepath.Join(home, ".nodemind", "nodemind.db"),
		LogLevel: "warn",
		Timezone: "Local",
		MindMap: MindMapConfig{
			MinScale:  0.3,
			MaxScale:  3.0,
			OriginX:   400,
			OriginY:   400,
			StatusTTL: 2 * time.Second,
		},
		Focus: FocusConfig{
			DefaultMinutes: 25,
			Tick:           time.Second,
		},
	}
}

// DefaultPath is $NODEMIND_CONFIG or ~/.nodemind/config.yaml.
func DefaultPath() string {
	if env := os.Getenv("NODEMIND_CONFIG"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nodemind", "config.yaml")
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DBPath = getEnv("NODEMIND_DB", c.DBPath)
	c.LogLevel = getEnv("NODEMIND_LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnv("NODEMIND_TZ", c.Timezone)
	c.WatchExternal = getEnvBool("NODEMIND_WATCH", c.WatchExternal)
}

// Validate checks ranges and the time zone name.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MindMap.MinScale <= 0 {
		return fmt.Errorf("mindmap.min_scale must be positive, got %v", c.MindMap.MinScale)
	}
	if c.MindMap.MaxScale < c.MindMap.MinScale {
		return fmt.Errorf("mindmap.max_scale (%v) is below min_scale (%v)", c.MindMap.MaxScale, c.MindMap.MinScale)
	}
	if c.MindMap.StatusTTL <= 0 {
		return fmt.Errorf("mindmap.status_ttl must be positive")
	}
	if c.Focus.DefaultMinutes <= 0 {
		return fmt.Errorf("focus.default_minutes must be positive")
	}
	if c.Focus.Tick <= 0 {
		return fmt.Errorf("focus.tick must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone used for calendar-day keys.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}
