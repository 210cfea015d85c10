package commands

import (
	"fmt"
	"time"

	"github.com/diogo/chatstream/internal/api"
	"github.com/diogo/chatstream/internal/config"
	"github.com/diogo/chatstream/internal/logging"
)

// createSession builds the stream client and a session seeded with the resolved system prompt
func createSession(d *Dependencies, cfg config.Config) (*api.Session, error) {
	systemPrompt, err := config.ResolveSystemPrompt(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve persona: %w", err)
	}

	opener := d.Opener
	if opener == nil {
		client, err := api.NewClient(
			api.WithEndpoint(cfg.Endpoint),
			api.WithFraming(cfg.Framing),
			api.WithTimeoutSeconds(cfg.TimeoutSeconds),
			api.WithLogger(logging.L()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		opener = client
	}

	return api.NewSession(opener, systemPrompt,
		api.WithTurnTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		api.WithSessionLogger(logging.L()),
	), nil
}

// personaLabel names the persona shown in headers and transcripts
func personaLabel(cfg config.Config) string {
	switch {
	case cfg.SystemPrompt != "":
		return "custom"
	case cfg.Persona != "":
		return cfg.Persona
	}
	if p, err := config.GetDefaultPersona(); err == nil {
		return p.Name
	}
	return config.DefaultPersonaName
}
