// Package config loads the lhn configuration file and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel = "info"
	DefaultDBName   = "lhn.db"
)

type Config struct {
	DB              string `yaml:"db"`
	LogLevel        string `yaml:"log_level"`
	StrictChatTypes bool   `yaml:"strict_chat_types"`
	MetricsAddr     string `yaml:"metrics_addr,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		DB:       filepath.Join(Dir(), DefaultDBName),
		LogLevel: DefaultLogLevel,
	}
}

// Dir is the directory holding the config file and default database.
func Dir() string {
	if dir := os.Getenv("LHN_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lhn")
}

func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the config file at path (Path() when empty), then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if db := os.Getenv("LHN_DB"); db != "" {
		cfg.DB = db
	}
	if lvl := os.Getenv("LHN_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if strict := os.Getenv("LHN_STRICT_CHAT_TYPES"); strict != "" {
		if parsed, err := strconv.ParseBool(strict); err == nil {
			cfg.StrictChatTypes = parsed
		}
	}
	if addr := os.Getenv("LHN_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}

	if cfg.DB == "" {
		cfg.DB = DefaultConfig().DB
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return cfg, nil
}

func Save(cfg *Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
