package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		APIKeyEnv,
		"SERVER_PORT",
		"DEEPSEEK_BASE_URL",
		"DEEPSEEK_DEFAULT_MODEL",
		"DEEPSEEK_DEFAULT_TEMPERATURE",
		"ENABLE_CORS",
		"MAX_BODY_BYTES",
		"MAX_RESPONSE_BYTES",
		"HISTORY_DB",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func missingFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.toml")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerPort != DefaultServerPort {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, DefaultServerPort)
	}
	if cfg.UpstreamURL != DefaultUpstreamURL {
		t.Errorf("UpstreamURL = %q, want %q", cfg.UpstreamURL, DefaultUpstreamURL)
	}
	if cfg.DefaultModel != "deepseek-chat" {
		t.Errorf("DefaultModel = %q, want %q", cfg.DefaultModel, "deepseek-chat")
	}
	if cfg.DefaultTemperature != 0.2 {
		t.Errorf("DefaultTemperature = %v, want 0.2", cfg.DefaultTemperature)
	}
	if !cfg.EnableCORS {
		t.Error("EnableCORS = false, want true")
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("MaxBodyBytes = %d, want %d", cfg.MaxBodyBytes, DefaultMaxBodyBytes)
	}
	if cfg.HistoryDB != HistoryPath() {
		t.Errorf("HistoryDB = %q, want %q", cfg.HistoryDB, HistoryPath())
	}
}

func TestLoad_MissingAPIKeyIsNotAnError(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.APIKey)
	}
	if fp := cfg.CredentialFingerprint(); fp != "" {
		t.Errorf("CredentialFingerprint() = %q, want empty", fp)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `server_port = ":9000"
default_model = "deepseek-reasoner"
default_temperature = 0.7
enable_cors = false
history_db = "off"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SERVER_PORT", ":9100")
	t.Setenv(APIKeyEnv, "  sk-test  ")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerPort != ":9100" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, ":9100")
	}
	if cfg.DefaultModel != "deepseek-reasoner" {
		t.Errorf("DefaultModel = %q, want %q", cfg.DefaultModel, "deepseek-reasoner")
	}
	if cfg.DefaultTemperature != 0.7 {
		t.Errorf("DefaultTemperature = %v, want 0.7", cfg.DefaultTemperature)
	}
	if cfg.EnableCORS {
		t.Error("EnableCORS = true, want false")
	}
	if cfg.HistoryDB != "" {
		t.Errorf("HistoryDB = %q, want empty", cfg.HistoryDB)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "sk-test")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric temperature", "DEEPSEEK_DEFAULT_TEMPERATURE", "warm"},
		{"non-numeric body limit", "MAX_BODY_BYTES", "lots"},
		{"zero response limit", "MAX_RESPONSE_BYTES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			if _, err := Load(missingFile(t)); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("server_port = [unterminated"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestCredentialFingerprint(t *testing.T) {
	a := &Config{APIKey: "sk-one"}
	b := &Config{APIKey: "sk-two"}

	fa := a.CredentialFingerprint()
	if len(fa) != 8 {
		t.Fatalf("fingerprint length = %d, want 8", len(fa))
	}
	if fa == "sk-one" || fa == b.CredentialFingerprint() {
		t.Errorf("fingerprints should be distinct digests, got %q and %q", fa, b.CredentialFingerprint())
	}
	if fa != a.CredentialFingerprint() {
		t.Error("fingerprint is not stable")
	}
}

func TestLoad_HistoryDBExpandsHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`history_db = "~/db/history.db"`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, "db", "history.db"); cfg.HistoryDB != want {
		t.Errorf("HistoryDB = %q, want %q", cfg.HistoryDB, want)
	}
}

func TestDefaultConfigFile_Uncommented(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	var b strings.Builder
	for _, line := range strings.Split(defaultConfigFile(), "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			line = strings.TrimPrefix(line, "# ")
			if strings.HasPrefix(line, "history_db") && strings.Contains(line, "~") {
				t.Errorf("history_db suggestion is not resolved: %q", line)
			}
		}
		b.WriteString(line + "\n")
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("uncommented default config does not load: %v", err)
	}
	if cfg.HistoryDB != HistoryPath() {
		t.Errorf("HistoryDB = %q, want %q", cfg.HistoryDB, HistoryPath())
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes || cfg.DefaultTemperature != DefaultTemperature {
		t.Errorf("uncommented defaults differ: %+v", cfg)
	}
}
