package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_OverridesDefaults(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_REFRESH_SECRET", "env-refresh")
	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "csecret")
	t.Setenv("GOOGLE_CALLBACK_URL", "https://api.example/auth/google/callback")
	t.Setenv("FRONTEND_URL", "https://app.example")
	t.Setenv("COOKIE_DOMAIN", "example")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_NAME", "prod")
	t.Setenv("CORS_ORIGINS", "https://app.example, https://admin.example,")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "env-refresh", cfg.JWTRefreshSecret)
	assert.Equal(t, "cid", cfg.GoogleClientID)
	assert.Equal(t, "csecret", cfg.GoogleClientSecret)
	assert.Equal(t, "https://api.example/auth/google/callback", cfg.GoogleCallbackURL)
	assert.Equal(t, "https://app.example", cfg.FrontendURL)
	assert.Equal(t, "example", cfg.CookieDomain)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://app.example", "https://admin.example"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres://postgres:postgres@pg:5432/prod?sslmode=disable", cfg.DSN())
}

func TestParseEnv_EnvFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FRONTEND_URL=https://from-file\nLOG_LEVEL=debug\n"), 0o600))
	os.Args = []string{"testbin", "-env-file", path}

	// godotenv never overrides variables that are already set
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { _ = os.Unsetenv("FRONTEND_URL") })

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "https://from-file", cfg.FrontendURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestParseEnv_MissingEnvFilePanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-env-file", filepath.Join(t.TempDir(), "nope.env")}

	assert.Panics(t, func() { parseEnv(&Config{}) })
}
