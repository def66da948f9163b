package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocale(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestTranslatorLookupAndFallback(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.yaml", "greeting: \"Hello\"\nonly.en: \"English only\"\n")
	writeLocale(t, dir, "pt.yaml", "greeting: \"Olá\"\n")

	tr, err := NewTranslator(dir, "en")
	require.NoError(t, err)

	assert.Equal(t, "Olá", tr.T("pt", "greeting"))
	assert.Equal(t, "Hello", tr.T("en", "greeting"))
	// Missing in pt falls back to the default language.
	assert.Equal(t, "English only", tr.T("pt", "only.en"))
	// Missing everywhere echoes the key.
	assert.Equal(t, "no.such.key", tr.T("pt", "no.such.key"))

	assert.Equal(t, []string{"en", "pt"}, tr.Available())
	assert.True(t, tr.Has("pt"))
	assert.False(t, tr.Has("ru"))
}

func TestTf(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.yaml", "level: \"Level %d\"\n")

	tr, err := NewTranslator(dir, "en")
	require.NoError(t, err)
	assert.Equal(t, "Level 3", tr.Tf("en", "level", 3))
}

func TestFallbackTranslator(t *testing.T) {
	tr := NewFallback("en")
	assert.Equal(t, "any.key", tr.T("en", "any.key"))
	assert.Equal(t, []string{"en"}, tr.Available())
}

func TestCorruptLocaleFile(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.yaml", "greeting: [unclosed\n")

	_, err := NewTranslator(dir, "en")
	assert.Error(t, err)
}
