package api

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/diogo/chatstream/internal/models"
)

// MockStreamOpener is a StreamOpener that replays a canned body, for testing
type MockStreamOpener struct {
	// Body is served as the response body when OpenErr is nil.
	Body string
	// Chunks, when set, are served one per read instead of Body.
	Chunks []string
	// ReadErr ends the body with this error instead of io.EOF.
	ReadErr error
	OpenErr error
	Framing string
	// Block, when set, makes OpenStream wait for it to close or ctx to end.
	Block chan struct{}

	mu       sync.Mutex
	calls    int
	messages [][]models.Message
}

var _ StreamOpener = (*MockStreamOpener)(nil)

func (m *MockStreamOpener) OpenStream(ctx context.Context, messages []models.Message) (*FragmentStream, error) {
	m.mu.Lock()
	m.calls++
	snapshot := make([]models.Message, len(messages))
	copy(snapshot, messages)
	m.messages = append(m.messages, snapshot)
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}

	chunks := m.Chunks
	if chunks == nil {
		chunks = []string{m.Body}
	}
	body := &ChunkedBody{Chunks: chunks, Err: m.ReadErr}
	return NewFragmentStream(ctx, body, "", m.Framing), nil
}

// Calls returns how many times OpenStream was called
func (m *MockStreamOpener) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastMessages returns the snapshot sent by the most recent call
func (m *MockStreamOpener) LastMessages() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

// ChunkedBody is an io.ReadCloser that returns one chunk per Read
type ChunkedBody struct {
	Chunks []string
	// Err is returned once the chunks run out. Nil means io.EOF.
	Err error

	idx    int
	rest   string
	closed bool
}

func (b *ChunkedBody) Read(p []byte) (int, error) {
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	if b.rest == "" {
		if b.idx >= len(b.Chunks) {
			if b.Err != nil {
				return 0, b.Err
			}
			return 0, io.EOF
		}
		b.rest = b.Chunks[b.idx]
		b.idx++
		if b.rest == "" {
			return 0, nil
		}
	}
	n := copy(p, b.rest)
	b.rest = b.rest[n:]
	return n, nil
}

func (b *ChunkedBody) Close() error {
	b.closed = true
	return nil
}

// NDJSON joins fragments into a response body, one {"response": ...} per line
func NDJSON(fragments ...string) string {
	var sb strings.Builder
	for _, f := range fragments {
		sb.WriteString(`{"response":`)
		sb.WriteString(quoteJSON(f))
		sb.WriteString("}\n")
	}
	return sb.String()
}

func quoteJSON(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
