package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseAndClientID(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingEnvironmentVariables)
}

func TestLoadDefaultsAndEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "sqlite://file::memory:")
	t.Setenv("GOOGLE_CLIENT_ID", "client-123.apps.googleusercontent.com")
	t.Setenv("ALLOWED_ORIGINS", "https://game.example.com, https://admin.example.com,")
	t.Setenv("R2_BUCKET_NAME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":5200", cfg.Server.Address)
	assert.Equal(t, []string{"https://game.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "client-123.apps.googleusercontent.com", cfg.Google.ClientID)
	assert.Equal(t, 1024, cfg.Google.TokenCacheSize)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.StaleAfter)
	assert.False(t, cfg.R2.Enabled())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
