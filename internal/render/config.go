package render

import (
	"os"

	"github.com/diogo/chatstream/internal/config"
)

// EnvStyle overrides the markdown style from the environment
const EnvStyle = "GLAMOUR_STYLE"

// OptionsFromConfig builds render options from the markdown section of cfg.
// GLAMOUR_STYLE takes precedence over the configured style.
func OptionsFromConfig(cfg config.Config, width int) Options {
	opts := DefaultOptions().WithWidth(width)

	md := cfg.Markdown
	if md.Style != "" {
		opts = opts.WithStyle(md.Style)
	}
	opts = opts.WithEmoji(md.EnableEmoji).WithPreserveNewLines(md.PreserveNewLines)
	opts.TableWrap = md.TableWrap
	opts.InlineTableLinks = md.InlineTableLinks

	if style := os.Getenv(EnvStyle); style != "" {
		opts = opts.WithStyle(style)
	}
	return opts
}
