package commands

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/chatstream/internal/api"
	"github.com/diogo/chatstream/internal/config"
)

func TestConfigCommand_Subcommands(t *testing.T) {
	expected := []string{"show", "set", "path"}
	for _, sub := range expected {
		found := false
		for _, cmd := range configCmd.Commands() {
			if cmd.Name() == sub {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Subcommand %s not found", sub)
		}
	}
	if !strings.Contains(configCmd.Long, "endpoint") {
		t.Error("help should list settable keys")
	}
}

func TestRunConfigSet(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		check   func(t *testing.T, cfg config.Config)
	}{
		{
			name:  "endpoint",
			key:   "endpoint",
			value: "https://chat.example.test/api/chat",
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Endpoint != "https://chat.example.test/api/chat" {
					t.Errorf("Endpoint = %q", cfg.Endpoint)
				}
			},
		},
		{
			name:  "framing",
			key:   "framing",
			value: "chunk",
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Framing != config.FramingChunk {
					t.Errorf("Framing = %q", cfg.Framing)
				}
			},
		},
		{
			name:  "bool",
			key:   "copy_to_clipboard",
			value: "true",
			check: func(t *testing.T, cfg config.Config) {
				if !cfg.CopyToClipboard {
					t.Error("CopyToClipboard should be true")
				}
			},
		},
		{
			name:  "theme",
			key:   "theme",
			value: "catppuccin",
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Theme != "catppuccin" {
					t.Errorf("Theme = %q", cfg.Theme)
				}
			},
		},
		{name: "unknown theme", key: "theme", value: "solarized", wantErr: true},
		{name: "unknown key", key: "nope", value: "x", wantErr: true},
		{name: "invalid endpoint", key: "endpoint", value: "ftp://x", wantErr: true},
		{name: "invalid timeout", key: "timeout_seconds", value: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := withTestDeps(t, &api.MockStreamOpener{})

			err := runConfigSet(tt.key, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("runConfigSet: %v", err)
			}
			if !strings.Contains(td.stdout.String(), tt.key) {
				t.Errorf("stdout = %q", td.stdout.String())
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestConfigShow(t *testing.T) {
	td := withTestDeps(t, &api.MockStreamOpener{})
	t.Setenv("CHATSTREAM_PERSONA", "writer")

	if err := configShowCmd.RunE(configShowCmd, nil); err != nil {
		t.Fatalf("config show: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal(td.stdout.Bytes(), &cfg); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, td.stdout.String())
	}
	if cfg.Persona != "writer" {
		t.Errorf("Persona = %q, want the environment override", cfg.Persona)
	}
}

func TestConfigPath(t *testing.T) {
	td := withTestDeps(t, &api.MockStreamOpener{})

	if err := configPathCmd.RunE(configPathCmd, nil); err != nil {
		t.Fatalf("config path: %v", err)
	}
	got := strings.TrimSpace(td.stdout.String())
	if filepath.Base(got) != "config.json" || filepath.Base(filepath.Dir(got)) != ".chatstream" {
		t.Errorf("path = %q", got)
	}
}
