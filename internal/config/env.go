package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/subosito/gotenv"
)

// Environment variables that override config file values
const (
	EnvEndpoint = "CHATSTREAM_ENDPOINT"
	EnvPersona  = "CHATSTREAM_PERSONA"
	EnvLogLevel = "CHATSTREAM_LOG_LEVEL"
	EnvFraming  = "CHATSTREAM_FRAMING"
	EnvTimeout  = "CHATSTREAM_TIMEOUT_SECONDS"
)

// LoadEnv loads dotenv files (".env" when none are given) without overriding
// variables already set, then applies CHATSTREAM_* overrides to cfg.
// Missing dotenv files are skipped. A malformed file or value is reported in
// the returned error; the overrides that did parse are still applied.
func LoadEnv(cfg Config, files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var errs []error
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := gotenv.Load(f); err != nil {
			errs = append(errs, fmt.Errorf("dotenv %s: %w", f, err))
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvEndpoint)); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPersona)); v != "" {
		cfg.Persona = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFraming)); v != "" {
		cfg.Framing = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s must be a non-negative integer, got %q", EnvTimeout, v))
		} else {
			cfg.TimeoutSeconds = n
		}
	}
	return cfg, errors.Join(errs...)
}
