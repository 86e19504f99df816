package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cocoaguard", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "static/uploads", cfg.Uploads.Dir)
	assert.Equal(t, int64(5<<20), cfg.Uploads.MaxSizeBytes)
}

func TestLoadFromFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[mysql]
user = "cocoa"
db = "pods"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MYSQL_PASSWORD", "hunter2")
	t.Setenv("APP_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	// Env wins over file, file wins over defaults.
	assert.Equal(t, 7070, cfg.App.Port)
	assert.Equal(t, "cocoa", cfg.MySQL.User)
	assert.Equal(t, "hunter2", cfg.MySQL.Password)
	assert.Contains(t, cfg.MySQLDSN(), "cocoa:hunter2@tcp(127.0.0.1:3306)/pods")
}

func TestEnvIntFallbackOnGarbage(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
}
