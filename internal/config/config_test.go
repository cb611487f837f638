package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.MindMap.MinScale)
	assert.Equal(t, 3.0, cfg.MindMap.MaxScale)
	assert.Equal(t, 25, cfg.Focus.DefaultMinutes)
	assert.Equal(t, time.Second, cfg.Focus.Tick)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/x.db
log_level: debug
timezone: UTC
mindmap:
  min_scale: 0.5
  status_ttl: 500ms
focus:
  default_minutes: 50
`)
	t.Setenv("NODEMIND_DB", "/tmp/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.5, cfg.MindMap.MinScale)
	assert.Equal(t, 3.0, cfg.MindMap.MaxScale)
	assert.Equal(t, 500*time.Millisecond, cfg.MindMap.StatusTTL)
	assert.Equal(t, 50, cfg.Focus.DefaultMinutes)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestValidateRejectsBadScale(t *testing.T) {
	path := writeConfig(t, "mindmap:\n  min_scale: 2\n  max_scale: 1\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "max_scale")
}

func TestValidateRejectsUnknownZone(t *testing.T) {
	path := writeConfig(t, "timezone: Mars/Olympus\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid timezone")
}
