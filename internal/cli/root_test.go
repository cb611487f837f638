package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NODEMIND_LOG_LEVEL", "error")
	t.Setenv("NODEMIND_DB", "")

	flags := RootCmd.PersistentFlags()
	t.Cleanup(func() {
		_ = flags.Set("config", "")
		_ = flags.Set("db", "")
		_ = flags.Set("log-level", "")
	})
	require.NoError(t, flags.Set("config", filepath.Join(dir, "missing.yaml")))
	require.NoError(t, flags.Set("db", filepath.Join(dir, "n.db")))

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)

	require.NoError(t, flags.Set("log-level", "warn"))
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "n.db"), cfg.DBPath)
}
