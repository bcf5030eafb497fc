package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "web")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "web", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingServiceName(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "web")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("DATABASE_URL", "  postgres://u:p@db:5432/anime  ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://u:p@db:5432/anime", cfg.DatabaseURL)
}
