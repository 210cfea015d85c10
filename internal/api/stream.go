package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apierrors "github.com/diogo/chatstream/internal/errors"
	"github.com/diogo/chatstream/internal/models"
)

const readChunkSize = 4096

// StreamStats counts what a FragmentStream has seen so far
type StreamStats struct {
	Fragments     int
	Bytes         int
	Lines         int
	SkippedLines  int
	MissingFields int
}

// FragmentStream turns an NDJSON response body into text fragments.
//
// Use it like an iterator:
//
//	for stream.Next() {
//		buf += stream.Fragment()
//	}
//	if err := stream.Err(); err != nil { ... }
type FragmentStream struct {
	ctx      context.Context
	body     io.ReadCloser
	reader   io.Reader
	endpoint string
	framing  string
	logger   *zap.Logger

	partial  string
	pending  []string
	fragment string
	err      error
	done     bool
	stats    StreamStats

	closeOnce sync.Once
}

func newFragmentStream(ctx context.Context, body io.ReadCloser, contentType, endpoint, framing string, logger *zap.Logger) *FragmentStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	if framing == "" {
		framing = FramingLine
	}
	return &FragmentStream{
		ctx:      ctx,
		body:     body,
		reader:   newDecodingReader(body, contentType),
		endpoint: endpoint,
		framing:  framing,
		logger:   logger,
	}
}

// NewFragmentStream wraps an already open body. contentType may be empty.
func NewFragmentStream(ctx context.Context, body io.ReadCloser, contentType, framing string) *FragmentStream {
	return newFragmentStream(ctx, body, contentType, "", framing, nil)
}

// newDecodingReader decodes body as UTF-8 unless contentType names another charset.
// Multi-byte sequences split between reads are held back until complete.
func newDecodingReader(body io.Reader, contentType string) io.Reader {
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			label := strings.ToLower(strings.TrimSpace(params["charset"]))
			if label != "" && label != "utf-8" && label != "utf8" {
				if r, err := charset.NewReaderLabel(label, body); err == nil {
					return r
				}
			}
		}
	}
	return transform.NewReader(body, unicode.UTF8.NewDecoder())
}

// Next advances to the next fragment. It returns false at the end of the
// stream or on a read error, after which Err reports what happened.
func (s *FragmentStream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.fragment = s.pending[0]
			s.pending = s.pending[1:]
			s.stats.Fragments++
			s.stats.Bytes += len(s.fragment)
			return true
		}
		if s.done {
			s.fragment = ""
			return false
		}
		if err := s.ctx.Err(); err != nil {
			s.fail(err)
			return false
		}
		s.fill()
	}
}

// fill reads one chunk and queues the fragments found in it.
func (s *FragmentStream) fill() {
	buf := make([]byte, readChunkSize)
	n, err := s.reader.Read(buf)
	if n > 0 {
		s.consume(string(buf[:n]))
	}
	if err == nil {
		return
	}
	if errors.Is(err, io.EOF) {
		if s.partial != "" {
			s.handleLine(s.partial)
			s.partial = ""
		}
		s.done = true
		return
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	s.fail(err)
}

func (s *FragmentStream) fail(err error) {
	s.err = apierrors.NewNetworkErrorWithEndpoint("read stream", s.endpoint, err)
	s.pending = nil
	s.partial = ""
	s.done = true
}

// consume splits a decoded increment into lines according to the framing mode.
func (s *FragmentStream) consume(chunk string) {
	if s.framing == FramingChunk {
		for _, line := range strings.Split(chunk, "\n") {
			s.handleLine(line)
		}
		return
	}

	lines := strings.Split(s.partial+chunk, "\n")
	s.partial = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		s.handleLine(line)
	}
}

func (s *FragmentStream) handleLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}
	s.stats.Lines++

	fragment, err := ExtractFragment(line)
	switch {
	case err != nil:
		s.stats.SkippedLines++
		s.logger.Debug("skipping stream line", zap.Error(err))
	case fragment == "":
		s.stats.MissingFields++
		s.logger.Debug("stream line has no text", zap.Error(apierrors.ErrFieldMissing))
	default:
		s.pending = append(s.pending, fragment)
	}
}

// ExtractFragment parses one trimmed stream line. It returns a ParseError for
// invalid JSON and an empty string when the line carries no text fragment.
func ExtractFragment(line string) (string, error) {
	if !gjson.Valid(line) {
		return "", apierrors.NewParseError("invalid JSON in stream line", line)
	}
	res := gjson.Get(line, models.ResponseField)
	if res.Type != gjson.String {
		return "", nil
	}
	return res.Str, nil
}

// Fragment returns the fragment produced by the last call to Next.
func (s *FragmentStream) Fragment() string {
	return s.fragment
}

// Err returns the error that ended the stream, or nil on a clean end.
func (s *FragmentStream) Err() error {
	return s.err
}

// Stats returns counters for the lines read so far.
func (s *FragmentStream) Stats() StreamStats {
	return s.stats
}

// Close releases the response body. It is safe to call more than once.
func (s *FragmentStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.done = true
		err = s.body.Close()
	})
	return err
}
