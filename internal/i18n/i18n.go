// Package i18n provides flat key/value translations loaded from YAML locale
// files, with fallback to a default language.
package i18n

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Translator resolves message keys per language.
type Translator struct {
	locales     map[string]map[string]string
	defaultLang string
}

// NewTranslator loads every *.yaml file under dir; the file stem is the
// language code (en.yaml, pt.yaml).
func NewTranslator(dir string, defaultLang string) (*Translator, error) {
	t := &Translator{
		locales:     make(map[string]map[string]string),
		defaultLang: defaultLang,
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		lang := strings.TrimSuffix(d.Name(), ".yaml")
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read locale %s: %w", path, readErr)
		}
		kv := make(map[string]string)
		if unmarshalErr := yaml.Unmarshal(data, &kv); unmarshalErr != nil {
			return fmt.Errorf("parse locale %s: %w", path, unmarshalErr)
		}
		t.locales[lang] = kv
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, ok := t.locales[defaultLang]; !ok {
		t.locales[defaultLang] = make(map[string]string)
	}
	return t, nil
}

// NewFallback builds an empty translator so the app can run without locale
// files; every lookup echoes the key.
func NewFallback(defaultLang string) *Translator {
	return &Translator{
		locales:     map[string]map[string]string{defaultLang: {}},
		defaultLang: defaultLang,
	}
}

// T resolves key in lang, falling back to the default language and finally
// the key itself.
func (t *Translator) T(lang, key string) string {
	if lang != "" {
		if val, ok := t.locales[lang][key]; ok {
			return val
		}
	}
	if val, ok := t.locales[t.defaultLang][key]; ok {
		return val
	}
	return key
}

// Tf resolves key and applies fmt-style arguments to the result.
func (t *Translator) Tf(lang, key string, args ...any) string {
	msg := t.T(lang, key)
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Has reports whether lang was loaded.
func (t *Translator) Has(lang string) bool {
	_, ok := t.locales[lang]
	return ok
}

// Available returns loaded language codes, sorted.
func (t *Translator) Available() []string {
	keys := make([]string, 0, len(t.locales))
	for k := range t.locales {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
