package commands

import (
	"io"
	"os"

	"github.com/atotto/clipboard"

	"github.com/diogo/chatstream/internal/api"
	"github.com/diogo/chatstream/internal/tui"
)

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Opener replaces the HTTP client built from config. Nil means a real client.
	Opener api.StreamOpener

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Clipboard writes text to the system clipboard.
	Clipboard func(string) error

	// RunChat runs the interactive chat view.
	RunChat func(session tui.ChatSession, opts tui.Options) error

	// IsTTY reports whether stdout is a terminal.
	IsTTY func() bool
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Clipboard: clipboard.WriteAll,
		RunChat:   tui.RunChat,
		IsTTY:     isStdoutTTY,
	}
}

var deps = NewDependencies()
