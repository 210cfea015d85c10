package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/chatstream/internal/config"
	"github.com/diogo/chatstream/internal/render"
	"github.com/diogo/chatstream/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session.

The whole conversation is sent with every message. Press Esc to cancel a
reply while it streams. Type /save [path] to export the transcript, /copy to
copy the last reply, and 'exit', 'quit' or Ctrl+C to end the session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		return runChat(deps, cfg)
	},
}

func runChat(d *Dependencies, cfg config.Config) error {
	session, err := createSession(d, cfg)
	if err != nil {
		return err
	}

	palette, err := paletteFor(cfg)
	if err != nil {
		return err
	}
	tui.ApplyPalette(palette)

	opts := tui.Options{
		Persona:     personaLabel(cfg),
		Endpoint:    cfg.Endpoint,
		Render:      render.OptionsFromConfig(cfg, 80),
		CopyReplies: cfg.CopyToClipboard,
		CopyFunc:    d.Clipboard,
	}
	if err := d.RunChat(session, opts); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}

// paletteFor resolves the configured theme. Without one the palette follows
// the markdown style.
func paletteFor(cfg config.Config) (render.Palette, error) {
	if cfg.Theme == "" {
		return render.PaletteFor("", cfg.Markdown.Style), nil
	}
	p, ok := render.PaletteByName(cfg.Theme)
	if !ok {
		return render.Palette{}, fmt.Errorf("unknown theme %q (known: %s)",
			cfg.Theme, strings.Join(render.PaletteNames(), ", "))
	}
	return p, nil
}
