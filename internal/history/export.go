// Package history exports chat transcripts to disk.
// Conversations live in memory only; a transcript is written on request.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diogo/chatstream/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ExportOptions configures how transcripts are exported
type ExportOptions struct {
	Format ExportFormat
	// IncludeSystem writes the system prompt as the first entry.
	IncludeSystem bool
}

// DefaultExportOptions returns the defaults for export
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:        ExportFormatMarkdown,
		IncludeSystem: false,
	}
}

// Transcript is a conversation snapshot plus the session it came from
type Transcript struct {
	SessionID string           `json:"session_id"`
	Persona   string           `json:"persona,omitempty"`
	Endpoint  string           `json:"endpoint,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Exported  time.Time        `json:"exported_at"`
	Messages  []models.Message `json:"messages"`
}

// Turns returns the number of user messages in the transcript
func (t Transcript) Turns() int {
	n := 0
	for _, m := range t.Messages {
		if m.Role == models.RoleUser {
			n++
		}
	}
	return n
}

func (t Transcript) visible(opts ExportOptions) []models.Message {
	if opts.IncludeSystem {
		return t.Messages
	}
	out := make([]models.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		if m.Role != models.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// ExportToMarkdown renders the transcript as Markdown
func ExportToMarkdown(t Transcript, opts ExportOptions) string {
	var sb strings.Builder

	sb.WriteString("# Chat transcript\n\n")
	if t.Persona != "" {
		fmt.Fprintf(&sb, "**Persona:** %s\n", t.Persona)
	}
	if t.Endpoint != "" {
		fmt.Fprintf(&sb, "**Endpoint:** %s\n", t.Endpoint)
	}
	fmt.Fprintf(&sb, "**Session:** %s\n", t.SessionID)
	fmt.Fprintf(&sb, "**Started:** %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Turns:** %d\n", t.Turns())
	sb.WriteString("\n---\n\n")

	msgs := t.visible(opts)
	for i, msg := range msgs {
		sb.WriteString("## ")
		sb.WriteString(roleTitle(msg.Role))
		sb.WriteString("\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if i < len(msgs)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ExportToJSON renders the transcript as indented JSON
func ExportToJSON(t Transcript, opts ExportOptions) ([]byte, error) {
	out := t
	out.Messages = t.visible(opts)
	return json.MarshalIndent(out, "", "  ")
}

// Export renders the transcript in opts.Format
func Export(t Transcript, opts ExportOptions) ([]byte, error) {
	switch opts.Format {
	case ExportFormatJSON:
		return ExportToJSON(t, opts)
	case ExportFormatMarkdown, "":
		return []byte(ExportToMarkdown(t, opts)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", opts.Format)
	}
}

// FormatFromPath picks JSON for ".json" files and Markdown otherwise
func FormatFromPath(path string) ExportFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ExportFormatJSON
	}
	return ExportFormatMarkdown
}

// DefaultFileName names a transcript file after its session and start time
func DefaultFileName(t Transcript) string {
	id := t.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("chat-%s-%s.md", t.CreatedAt.Format("20060102-150405"), id)
}

// WriteFile exports t to path, creating parent directories. The format
// follows the file extension. It returns the path written.
func WriteFile(path string, t Transcript, opts ExportOptions) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFileName(t)
	}
	opts.Format = FormatFromPath(path)

	data, err := Export(t, opts)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}

func roleTitle(role models.Role) string {
	switch role {
	case models.RoleUser:
		return "User"
	case models.RoleAssistant:
		return "Assistant"
	case models.RoleSystem:
		return "System"
	default:
		return string(role)
	}
}
