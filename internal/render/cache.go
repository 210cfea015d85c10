package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// rendererEntry holds one TermRenderer per option set. TermRenderer keeps
// state between calls, so renders through the same entry are serialized.
type rendererEntry struct {
	build sync.Once
	mu    sync.Mutex
	tr    *glamour.TermRenderer
	err   error
}

var (
	renderersMu sync.Mutex
	renderers   = map[Options]*rendererEntry{}
)

func entryFor(opts Options) *rendererEntry {
	renderersMu.Lock()
	defer renderersMu.Unlock()

	e, ok := renderers[opts]
	if !ok {
		e = &rendererEntry{}
		renderers[opts] = e
	}
	return e
}

// forget drops e if it is still the entry cached for opts, so a failed build
// is retried on the next render (a style file may appear later).
func forget(opts Options, e *rendererEntry) {
	renderersMu.Lock()
	if renderers[opts] == e {
		delete(renderers, opts)
	}
	renderersMu.Unlock()
}

func renderCached(content string, opts Options) (string, error) {
	e := entryFor(opts)
	e.build.Do(func() {
		e.tr, e.err = newTermRenderer(opts)
	})
	if e.err != nil {
		forget(opts, e)
		return "", e.err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tr.Render(content)
}

func newTermRenderer(opts Options) (*glamour.TermRenderer, error) {
	ropts := []glamour.TermRendererOption{
		glamour.WithStylePath(opts.Style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		ropts = append(ropts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ropts = append(ropts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ropts...)
}

// ClearCache drops every cached renderer.
func ClearCache() {
	renderersMu.Lock()
	renderers = map[Options]*rendererEntry{}
	renderersMu.Unlock()
}

// CacheSize returns the number of option sets with a cached renderer.
func CacheSize() int {
	renderersMu.Lock()
	defer renderersMu.Unlock()
	return len(renderers)
}
