package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/chatstream/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Endpoint != models.DefaultEndpoint {
		t.Errorf("Expected default endpoint %s, got '%s'", models.DefaultEndpoint, cfg.Endpoint)
	}
	if cfg.Framing != FramingLine {
		t.Errorf("Expected framing %q, got %q", FramingLine, cfg.Framing)
	}
	if cfg.TimeoutSeconds != 300 {
		t.Errorf("Expected TimeoutSeconds 300, got %d", cfg.TimeoutSeconds)
	}
	if cfg.Verbose {
		t.Errorf("Expected Verbose to be false, got %v", cfg.Verbose)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() returned error: %v", err)
	}
	if dir == "" {
		t.Error("GetConfigDir() returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("GetConfigDir() returned relative path: %s", dir)
	}
}

func TestGetLogPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	path, err := GetLogPath(DefaultConfig())
	if err != nil {
		t.Fatalf("GetLogPath() returned error: %v", err)
	}
	want := filepath.Join(tmpDir, ".chatstream", "logs", "chatstream.log")
	if path != want {
		t.Errorf("GetLogPath() = %s, want %s", path, want)
	}

	cfg := DefaultConfig()
	cfg.LogFile = "/var/log/custom.log"
	path, _ = GetLogPath(cfg)
	if path != "/var/log/custom.log" {
		t.Errorf("GetLogPath() with LogFile = %s", path)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "empty endpoint", mutate: func(c *Config) { c.Endpoint = " " }, wantErr: "endpoint is required"},
		{name: "non http endpoint", mutate: func(c *Config) { c.Endpoint = "ftp://x" }, wantErr: "http or https"},
		{name: "negative timeout", mutate: func(c *Config) { c.TimeoutSeconds = -1 }, wantErr: "timeout_seconds"},
		{name: "bad framing", mutate: func(c *Config) { c.Framing = "sse" }, wantErr: "framing"},
		{name: "chunk framing", mutate: func(c *Config) { c.Framing = FramingChunk }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		check   func(Config) bool
		wantErr bool
	}{
		{"endpoint", "https://chat.example.com/api/chat", func(c Config) bool { return c.Endpoint == "https://chat.example.com/api/chat" }, false},
		{"timeout_seconds", "0", func(c Config) bool { return c.TimeoutSeconds == 0 }, false},
		{"timeout_seconds", "abc", nil, true},
		{"framing", "chunk", func(c Config) bool { return c.Framing == FramingChunk }, false},
		{"framing", "bogus", nil, true},
		{"verbose", "true", func(c Config) bool { return c.Verbose }, false},
		{"verbose", "maybe", nil, true},
		{"markdown.style", "light", func(c Config) bool { return c.Markdown.Style == "light" }, false},
		{"markdown.table_wrap", "false", func(c Config) bool { return !c.Markdown.TableWrap }, false},
		{"no_such_key", "x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			before := cfg
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if cfg != before {
					t.Error("failed Set() must leave config unchanged")
				}
				return
			}
			if !tt.check(cfg) {
				t.Errorf("Set(%s, %s) did not apply: %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

func TestSettableKeys(t *testing.T) {
	keys := SettableKeys()
	if len(keys) == 0 {
		t.Fatal("SettableKeys() returned no keys")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg := DefaultConfig()
	cfg.Endpoint = "https://chat.example.com/api/chat"
	cfg.Persona = "coder"
	cfg.CopyToClipboard = true

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}

	configPath := filepath.Join(tmpDir, ".chatstream", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}

	var saved Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("Failed to parse saved config: %v", err)
	}
	if saved.Endpoint != cfg.Endpoint {
		t.Errorf("Endpoint = %s, want %s", saved.Endpoint, cfg.Endpoint)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if loaded.Persona != "coder" || !loaded.CopyToClipboard {
		t.Errorf("LoadConfig() = %+v", loaded)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.Endpoint != models.DefaultEndpoint {
		t.Errorf("Endpoint = %s, want default", cfg.Endpoint)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configDir := filepath.Join(tmpDir, ".chatstream")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte("{invalid"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err == nil {
		t.Error("LoadConfig() should return error for invalid JSON")
	}
	if cfg.Endpoint != models.DefaultEndpoint {
		t.Errorf("Endpoint = %s, want default on parse failure", cfg.Endpoint)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "CHATSTREAM_ENDPOINT=https://from-dotenv.example/api/chat\nCHATSTREAM_FRAMING=chunk\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	// Values already in the environment win over the dotenv file.
	t.Setenv(EnvFraming, "line")
	t.Setenv(EnvEndpoint, "")
	os.Unsetenv(EnvEndpoint)
	t.Setenv(EnvTimeout, "42")
	t.Setenv(EnvPersona, "coder")

	cfg, err := LoadEnv(DefaultConfig(), envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if cfg.Endpoint != "https://from-dotenv.example/api/chat" {
		t.Errorf("Endpoint = %s", cfg.Endpoint)
	}
	if cfg.Framing != "line" {
		t.Errorf("Framing = %s, want line", cfg.Framing)
	}
	if cfg.TimeoutSeconds != 42 {
		t.Errorf("TimeoutSeconds = %d, want 42", cfg.TimeoutSeconds)
	}
	if cfg.Persona != "coder" {
		t.Errorf("Persona = %s, want coder", cfg.Persona)
	}
}

func TestLoadEnv_MalformedDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "broken.env")
	if err := os.WriteFile(envFile, []byte("this line is not valid\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPersona, "writer")

	cfg, err := LoadEnv(DefaultConfig(), envFile)
	if err == nil {
		t.Fatal("LoadEnv() should report a malformed dotenv file")
	}
	if !strings.Contains(err.Error(), envFile) {
		t.Errorf("error should name the file: %v", err)
	}
	if cfg.Persona != "writer" {
		t.Errorf("Persona = %s, other overrides should still apply", cfg.Persona)
	}
}

func TestLoadEnv_InvalidTimeout(t *testing.T) {
	for _, v := range []string{"soon", "-3"} {
		t.Setenv(EnvTimeout, v)

		cfg, err := LoadEnv(DefaultConfig(), filepath.Join(t.TempDir(), "none.env"))
		if err == nil || !strings.Contains(err.Error(), EnvTimeout) {
			t.Errorf("LoadEnv() with %s=%q error = %v", EnvTimeout, v, err)
		}
		if cfg.TimeoutSeconds != DefaultConfig().TimeoutSeconds {
			t.Errorf("TimeoutSeconds = %d, want default", cfg.TimeoutSeconds)
		}
	}
}
