package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Defaults applied when neither the environment nor the config file sets a value.
const (
	DefaultServerPort       = ":8080"
	DefaultUpstreamURL      = "https://api.deepseek.com/chat/completions"
	DefaultModel            = "deepseek-chat"
	DefaultTemperature      = 0.2
	DefaultMaxBodyBytes     = 1 << 20
	DefaultMaxResponseBytes = 20 << 20

	// HistoryDisabled turns off the request history store.
	HistoryDisabled = "off"
)

// APIKeyEnv is the only place the upstream credential is read from.
const APIKeyEnv = "DEEPSEEK_API_KEY"

// Config holds application configuration loaded from environment and file.
// Priority: CLI flags → Env vars → config.toml → defaults
type Config struct {
	// ServerPort is the address to bind the server to (e.g., ":8080")
	ServerPort string

	// UpstreamURL is the chat-completions endpoint requests are relayed to
	UpstreamURL string

	// APIKey is the bearer credential for the upstream. May be empty; the
	// relay then answers every request with a configuration error.
	APIKey string

	// DefaultModel and DefaultTemperature fill absent request fields
	DefaultModel       string
	DefaultTemperature float64

	// EnableCORS adds permissive cross-origin headers and answers pre-flight
	EnableCORS bool

	MaxBodyBytes     int64
	MaxResponseBytes int64

	// HistoryDB is the sqlite path for request history, empty when disabled
	HistoryDB string
}

// Load reads configuration from file and environment variables.
// Environment variables override file config values. An empty path means
// the default config file location.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	fileConfig, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	temperature, err := getEnvFloatOrFile("DEEPSEEK_DEFAULT_TEMPERATURE", fileConfig.DefaultTemperature, DefaultTemperature)
	if err != nil {
		return nil, err
	}
	maxBody, err := getEnvIntOrFile("MAX_BODY_BYTES", fileConfig.MaxBodyBytes, DefaultMaxBodyBytes)
	if err != nil {
		return nil, err
	}
	maxResponse, err := getEnvIntOrFile("MAX_RESPONSE_BYTES", fileConfig.MaxResponseBytes, DefaultMaxResponseBytes)
	if err != nil {
		return nil, err
	}

	historyDB := getEnvOrFile("HISTORY_DB", fileConfig.HistoryDB, HistoryPath())
	if strings.EqualFold(historyDB, HistoryDisabled) {
		historyDB = ""
	} else {
		historyDB = expandHome(historyDB)
	}

	return &Config{
		ServerPort:         getEnvOrFile("SERVER_PORT", fileConfig.ServerPort, DefaultServerPort),
		UpstreamURL:        getEnvOrFile("DEEPSEEK_BASE_URL", fileConfig.UpstreamURL, DefaultUpstreamURL),
		APIKey:             strings.TrimSpace(os.Getenv(APIKeyEnv)),
		DefaultModel:       getEnvOrFile("DEEPSEEK_DEFAULT_MODEL", fileConfig.DefaultModel, DefaultModel),
		DefaultTemperature: temperature,
		EnableCORS:         getEnvBoolOrFile("ENABLE_CORS", fileConfig.EnableCORS, true),
		MaxBodyBytes:       maxBody,
		MaxResponseBytes:   maxResponse,
		HistoryDB:          historyDB,
	}, nil
}

// CredentialFingerprint returns a short digest of the API key that is safe
// to log. Empty when no key is configured.
func (c *Config) CredentialFingerprint() string {
	if c.APIKey == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(c.APIKey))
	return hex.EncodeToString(sum[:4])
}

// getEnvOrFile returns env value, file value, or default (in priority order)
func getEnvOrFile(key, fileValue, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

// getEnvBoolOrFile returns env bool, file bool, or default (in priority order)
func getEnvBoolOrFile(key string, fileValue *bool, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	if fileValue != nil {
		return *fileValue
	}
	return defaultValue
}

func getEnvFloatOrFile(key string, fileValue *float64, defaultValue float64) (float64, error) {
	if s := os.Getenv(key); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("config: invalid %s value %q: %w", key, s, err)
		}
		return v, nil
	}
	if fileValue != nil {
		return *fileValue, nil
	}
	return defaultValue, nil
}

func getEnvIntOrFile(key string, fileValue int64, defaultValue int64) (int64, error) {
	if s := os.Getenv(key); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("config: invalid %s value %q: %w", key, s, err)
		}
		if v <= 0 {
			return 0, fmt.Errorf("config: %s must be > 0, got %d", key, v)
		}
		return v, nil
	}
	if fileValue > 0 {
		return fileValue, nil
	}
	return defaultValue, nil
}
