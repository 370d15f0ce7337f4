package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	c, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "http://localhost:8080", c.BaseURL)
	assert.Equal(t, c.BaseURL, c.OAuthRedirectBase)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, "database", c.QuotaBackend)
	assert.Equal(t, 512, c.MaxUploadMB)
	assert.False(t, c.RedisEnabled())
}

func TestLoadFromRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadFromJSONAndEnvironment(t *testing.T) {
	path := writeJSON(t, `{
		"app": {"BaseURL": "https://share.example.com", "JWTSecret": "from-file", "AdminEmails": ["root@example.com"]},
		"database": {"Driver": "postgres", "DBName": "share"},
		"redis": {"RedisHost": "cache.internal"},
		"quota": {"Backend": "redis"}
	}`)
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("MAX_UPLOAD_MB", "64")

	c, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://share.example.com", c.BaseURL)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, []string{"root@example.com"}, c.AdminEmails)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, "share", c.DBName)
	assert.True(t, c.RedisEnabled())
	assert.Equal(t, 6379, c.RedisPort)
	assert.Equal(t, "redis", c.QuotaBackend)
	assert.Equal(t, 64, c.MaxUploadMB)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "oracle")
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadFromRejectsBrokenJSON(t *testing.T) {
	_, err := LoadFrom(writeJSON(t, `{"app":`))
	assert.Error(t, err)
}
