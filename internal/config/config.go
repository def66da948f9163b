// Package config loads server settings from an optional YAML file with
// HABITPET_* environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	DBPath        string `yaml:"db_path"`
	BotToken      string `yaml:"bot_token"`
	SessionSecret string `yaml:"session_secret"`
	DefaultLocale string `yaml:"default_locale"`
	LocalesDir    string `yaml:"locales_dir"`
	TemplatesDir  string `yaml:"templates_dir"`
}

// Load reads path if it exists, then applies environment overrides and
// defaults. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	override(&cfg.ListenAddr, "HABITPET_LISTEN_ADDR")
	override(&cfg.DBPath, "HABITPET_DB_PATH")
	override(&cfg.BotToken, "HABITPET_BOT_TOKEN")
	override(&cfg.SessionSecret, "HABITPET_SESSION_SECRET")
	override(&cfg.DefaultLocale, "HABITPET_DEFAULT_LOCALE")
	override(&cfg.LocalesDir, "HABITPET_LOCALES_DIR")
	override(&cfg.TemplatesDir, "HABITPET_TEMPLATES_DIR")

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "habitpet.db"
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production"
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en"
	}
	if cfg.LocalesDir == "" {
		cfg.LocalesDir = "locales"
	}
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "templates"
	}
	return cfg, nil
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
