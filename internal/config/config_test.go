package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.Addr())
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.True(t, cfg.AutoBots)
	assert.Equal(t, 30*time.Minute, cfg.StaleAfter)
	assert.Equal(t, 1.0, cfg.BotDelayScale)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LUDO_PORT", "9090")
	t.Setenv("LUDO_STORAGE", "SQLite")
	t.Setenv("LUDO_STORAGE_PATH", "/tmp/ludo.sqlite")
	t.Setenv("LUDO_AUTO_BOTS", "false")
	t.Setenv("LUDO_STALE_AFTER", "10m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.False(t, cfg.AutoBots)
	assert.Equal(t, 10*time.Minute, cfg.StaleAfter)
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LUDO_HOST=0.0.0.0\nLUDO_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LUDO_HOST")
		os.Unsetenv("LUDO_LOG_LEVEL")
	})

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"LUDO_STORAGE": "mongo",
		"LUDO_PORT":    "70000",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("unparsable", func(t *testing.T) {
		t.Setenv("LUDO_STALE_AFTER", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
}
