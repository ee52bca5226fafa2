package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/study-flamingo/iq-mcp-sub000/internal/config"
)

func TestLoadConfig_DefaultHostIsLocalhost(t *testing.T) {
	_ = os.Unsetenv("IQ_HOST")
	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host,
		"Default host must be 127.0.0.1 for security")
}

func TestLoadConfig_CanOverrideHost(t *testing.T) {
	t.Setenv("IQ_HOST", "0.0.0.0")
	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadConfig_StorePathJoinsDirAndFile(t *testing.T) {
	t.Setenv("IQ_DATA_PATH", "/var/lib/iq")
	t.Setenv("IQ_STORE_FILE", "graph.jsonl")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/iq", "graph.jsonl"), cfg.Storage.StorePath())
}

func TestLoadConfig_StoreDefaults(t *testing.T) {
	_ = os.Unsetenv("IQ_DATA_PATH")
	_ = os.Unsetenv("IQ_STORE_FILE")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.Storage.DataPath)
	assert.Equal(t, "memory.jsonl", cfg.Storage.StoreFile)
}

func TestLoadConfig_IntAndBoolParsing(t *testing.T) {
	t.Setenv("IQ_PORT", "7070")
	t.Setenv("IQ_BACKUP_ENABLED", "yes")
	t.Setenv("IQ_BACKUP_RETENTION_DAILY", "not-a-number")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Backup.BackupEnabled)
	assert.Equal(t, 7, cfg.Backup.BackupRetentionDaily,
		"unparseable integers must fall back to the default")
}

func TestLoadConfig_MirrorDisabledByDefault(t *testing.T) {
	_ = os.Unsetenv("IQ_MIRROR_ENGINE")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Mirror.Engine)
	assert.False(t, cfg.Mirror.Enabled())
}

func TestLoadConfig_MirrorEnabledWhenEngineSet(t *testing.T) {
	t.Setenv("IQ_MIRROR_ENGINE", "sqlite")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Mirror.Enabled())
}
