package render

import "strings"

// Markdown renders an assistant reply for the terminal.
// One renderer is built per distinct Options value and reused.
func Markdown(content string, opts Options) (string, error) {
	return renderCached(content, opts)
}

// Reply renders content, falling back to the raw text when rendering fails.
// Surrounding blank lines added by glamour are trimmed.
func Reply(content string, opts Options) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	out, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
