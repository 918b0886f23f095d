package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, 10, cfg.WorkerConcurrency)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("IS_LOCAL_DEV", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.True(t, cfg.IsLocalDev)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	_, err := LoadConfig()
	assert.Error(t, err)
}
