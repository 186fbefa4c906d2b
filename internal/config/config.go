package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Catalog is the public search/streaming API.
	Catalog CatalogConfig `koanf:"catalog"`

	// Remote is the per-user sync backend (auth, likes, playlists).
	Remote RemoteConfig `koanf:"remote"`

	Log LogConfig `koanf:"log"`
}

// CatalogConfig holds catalog API configuration.
type CatalogConfig struct {
	URL         string `koanf:"url"`
	SearchLimit int    `koanf:"search_limit"` // default result page size (default: 20)
}

// RemoteConfig holds sync backend configuration.
type RemoteConfig struct {
	URL string `koanf:"url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `koanf:"level"` // "debug", "info", "warn", "error" (default: "info")
	File       string `koanf:"file"`  // empty means default data dir location
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

func Load() (*Config, error) {
	return loadFrom(getConfigPaths())
}

// loadFrom reads config files in priority order (last wins) and applies
// defaults. Split out from Load for testing.
func loadFrom(configPaths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Catalog.URL == "" {
		cfg.Catalog.URL = "https://saavn.dev"
	}
	if cfg.Catalog.SearchLimit <= 0 || cfg.Catalog.SearchLimit > 50 {
		cfg.Catalog.SearchLimit = 20
	}
	cfg.Catalog.URL = strings.TrimSuffix(cfg.Catalog.URL, "/")
	cfg.Remote.URL = strings.TrimSuffix(cfg.Remote.URL, "/")

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}

	return cfg, nil
}

// HasRemote returns true if the sync backend is configured.
func (c *Config) HasRemote() bool {
	return c.Remote.URL != ""
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/cadenza/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cadenza", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}
