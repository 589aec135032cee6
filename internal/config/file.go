package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file structure.
// The upstream credential only comes from the environment.
type FileConfig struct {
	ServerPort         string   `toml:"server_port"`
	UpstreamURL        string   `toml:"upstream_url"`
	DefaultModel       string   `toml:"default_model"`
	DefaultTemperature *float64 `toml:"default_temperature"`
	EnableCORS         *bool    `toml:"enable_cors"`
	MaxBodyBytes       int64    `toml:"max_body_bytes"`
	MaxResponseBytes   int64    `toml:"max_response_bytes"`
	HistoryDB          string   `toml:"history_db"`
}

// ConfigPath returns the path to the config file (~/.chatrelay/config.toml).
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// LoadFile loads configuration from the TOML file at path.
// Returns an empty FileConfig if the file doesn't exist.
func LoadFile(path string) (*FileConfig, error) {
	cfg := &FileConfig{}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureConfigFile creates a default config file with commented examples if none exists.
func EnsureConfigFile() error {
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := EnsureDataDir(); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(defaultConfigFile()), 0644)
}

// defaultConfigFile renders the commented starter config with resolved paths.
func defaultConfigFile() string {
	return fmt.Sprintf(`# chatrelay configuration
# The upstream key is read from DEEPSEEK_API_KEY only.

# server_port = ":8080"
# upstream_url = "https://api.deepseek.com/chat/completions"
# default_model = "deepseek-chat"
# default_temperature = 0.2
# enable_cors = true
# max_body_bytes = 1048576
# max_response_bytes = 20971520

# Request history; set to "off" to disable. A leading ~/ is expanded.
# history_db = %q
`, HistoryPath())
}
