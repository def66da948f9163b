package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "habitpet.db", cfg.DBPath)
	assert.Equal(t, "en", cfg.DefaultLocale)
	assert.Equal(t, "locales", cfg.LocalesDir)
	assert.Equal(t, "templates", cfg.TemplatesDir)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habitpet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9000\"\ndb_path: \"/tmp/test.db\"\ndefault_locale: \"pt\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "pt", cfg.DefaultLocale)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habitpet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9000\"\n"), 0o644))
	t.Setenv("HABITPET_LISTEN_ADDR", ":7000")
	t.Setenv("HABITPET_SESSION_SECRET", "env-secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "env-secret", cfg.SessionSecret)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habitpet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
