// Package config loads the scribewire YAML configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/scribewire/scribewire/pkg/speech"
)

// EnvConfigPath selects the config file when the --config flag is unset.
const EnvConfigPath = "SCRIBEWIRE_CONFIG"

// DefaultPath is used when neither the flag nor the environment names a file.
const DefaultPath = "config.yaml"

// Config is the root configuration.
type Config struct {
	Logging Logging `yaml:"logging"`
	Gateway Gateway `yaml:"gateway"`
	Engine  Engine  `yaml:"engine"`
	Redis   Redis   `yaml:"redis"`
	IRC     IRC     `yaml:"irc"`
}

// Logging configures the slog default logger.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Gateway configures the audio ingress server.
type Gateway struct {
	// Listen is the HTTP listen address for the websocket endpoint.
	Listen string `yaml:"listen"`

	// DataDir holds the BadgerDB session record.
	DataDir string `yaml:"data_dir"`

	// Channel is the chat channel the session transcript belongs to.
	Channel string `yaml:"channel"`

	// Chairs are the initial meeting chairs.
	Chairs []string `yaml:"chairs"`
}

// Engine configures the speech recognition backend.
type Engine struct {
	// APIKey authenticates against the recognition service.
	APIKey string `yaml:"api_key"`

	// URL overrides the streaming endpoint.
	URL string `yaml:"url"`

	Session speech.Config `yaml:"session"`
}

// Redis configures the event bus. An empty Addr selects the in-process bus,
// which only works when gateway and bot share one process.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IRC configures the chat transport.
type IRC struct {
	Addr      string `yaml:"addr"`
	TLS       bool   `yaml:"tls"`
	Nick      string `yaml:"nick"`
	Channel   string `yaml:"channel"`
	SASLLogin string `yaml:"sasl_login"`
	SASLPass  string `yaml:"sasl_pass"`
}

// Load reads the config file at path. An empty path falls back to the
// SCRIBEWIRE_CONFIG environment variable, then to config.yaml.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a Config with built-in defaults applied.
func Default() *Config {
	return &Config{
		Logging: Logging{Level: "info"},
		Gateway: Gateway{
			Listen:  ":8085",
			DataDir: "data",
			Channel: "#meeting",
		},
		Engine: Engine{Session: speech.DefaultConfig()},
		IRC: IRC{
			Addr:    "irc.libera.chat:6697",
			TLS:     true,
			Nick:    "scribewire",
			Channel: "#meeting",
		},
	}
}
