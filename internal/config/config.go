// Package config handles configuration and persona management for chatstream.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/diogo/chatstream/internal/models"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", "notty" or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// Endpoint is the chat URL every turn is posted to.
	Endpoint string `json:"endpoint"`
	// Persona names the persona whose system prompt opens each session.
	Persona string `json:"persona,omitempty"`
	// SystemPrompt, when set, replaces the persona's system prompt.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// TimeoutSeconds bounds a whole turn, stream included. 0 disables the limit.
	TimeoutSeconds int `json:"timeout_seconds"`
	// Framing selects how the response body is cut into lines: "line" or "chunk".
	Framing         string         `json:"framing"`
	Verbose         bool           `json:"verbose"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	LogLevel        string         `json:"log_level"`
	LogFormat       string         `json:"log_format"` // "json" or "console"
	LogFile         string         `json:"log_file,omitempty"`
	// Theme names the chat view palette.
	Theme    string         `json:"theme,omitempty"`
	Markdown MarkdownConfig `json:"markdown,omitempty"`
}

// Framing values accepted in Config.Framing
const (
	FramingLine  = "line"
	FramingChunk = "chunk"
)

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Endpoint:        models.DefaultEndpoint,
		Persona:         "",
		TimeoutSeconds:  300,
		Framing:         FramingLine,
		Verbose:         false,
		CopyToClipboard: false,
		LogLevel:        "info",
		LogFormat:       "json",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Validate checks field values that the client depends on
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("endpoint must be an http or https URL: %s", c.Endpoint)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	switch c.Framing {
	case FramingLine, FramingChunk:
	default:
		return fmt.Errorf("framing must be %q or %q, got %q", FramingLine, FramingChunk, c.Framing)
	}
	return nil
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".chatstream")
	return configDir, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetLogPath returns the log file path from config, falling back to the config directory
func GetLogPath(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.LogFile) != "" {
		return cfg.LogFile, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "logs", "chatstream.log"), nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setters maps the keys accepted by Set to the field they update
var setters = map[string]func(*Config, string) error{
	"endpoint":      func(c *Config, v string) error { c.Endpoint = v; return nil },
	"persona":       func(c *Config, v string) error { c.Persona = v; return nil },
	"system_prompt": func(c *Config, v string) error { c.SystemPrompt = v; return nil },
	"timeout_seconds": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("timeout_seconds must be an integer: %w", err)
		}
		c.TimeoutSeconds = n
		return nil
	},
	"framing":           func(c *Config, v string) error { c.Framing = v; return nil },
	"verbose":           boolSetter(func(c *Config) *bool { return &c.Verbose }),
	"copy_to_clipboard": boolSetter(func(c *Config) *bool { return &c.CopyToClipboard }),
	"log_level":         func(c *Config, v string) error { c.LogLevel = v; return nil },
	"log_format":        func(c *Config, v string) error { c.LogFormat = v; return nil },
	"log_file":          func(c *Config, v string) error { c.LogFile = v; return nil },
	"theme":             func(c *Config, v string) error { c.Theme = v; return nil },
	"markdown.style":    func(c *Config, v string) error { c.Markdown.Style = v; return nil },
	"markdown.enable_emoji": boolSetter(func(c *Config) *bool {
		return &c.Markdown.EnableEmoji
	}),
	"markdown.preserve_newlines": boolSetter(func(c *Config) *bool {
		return &c.Markdown.PreserveNewLines
	}),
	"markdown.table_wrap": boolSetter(func(c *Config) *bool {
		return &c.Markdown.TableWrap
	}),
	"markdown.inline_table_links": boolSetter(func(c *Config) *bool {
		return &c.Markdown.InlineTableLinks
	}),
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", v)
		}
		*field(c) = b
		return nil
	}
}

// Set updates a single field by its JSON key and validates the result
func (c *Config) Set(key, value string) error {
	setter, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(SettableKeys(), ", "))
	}

	next := *c
	if err := setter(&next, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// SettableKeys returns the keys accepted by Set, sorted
func SettableKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
