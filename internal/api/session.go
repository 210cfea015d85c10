package api

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apierrors "github.com/diogo/chatstream/internal/errors"
	"github.com/diogo/chatstream/internal/logging"
	"github.com/diogo/chatstream/internal/models"
)

// Session owns one conversation and runs its turns one at a time
type Session struct {
	id        string
	client    StreamOpener
	conv      *models.Conversation
	timeout   time.Duration
	logger    *zap.Logger
	createdAt time.Time

	inFlight atomic.Bool
	mu       sync.Mutex // protects turn
	turn     int
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithTurnTimeout bounds each turn, stream included. 0 means no limit.
func WithTurnTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithSessionLogger sets the logger for per-turn log lines
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionID overrides the generated session id
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// NewSession creates a session whose conversation starts with systemPrompt
func NewSession(client StreamOpener, systemPrompt string, opts ...SessionOption) *Session {
	s := &Session{
		id:        uuid.NewString(),
		client:    client,
		conv:      models.NewConversation(systemPrompt),
		logger:    zap.NewNop(),
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Conversation returns the conversation owned by the session
func (s *Session) Conversation() *models.Conversation {
	return s.conv
}

// Snapshot returns a copy of the conversation
func (s *Session) Snapshot() []models.Message {
	return s.conv.Snapshot()
}

// InFlight reports whether a turn is running
func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// SendMessage runs one turn: it records text as a user message, streams the
// reply into display and commits it to the conversation.
//
// Blank text returns ErrEmptyInput and a call made while another turn runs
// returns ErrBusy; neither touches the conversation or the display.
// On a transport or stream failure the partial reply is dropped, the fallback
// message is committed and shown, and it is returned with the error.
func (s *Session) SendMessage(ctx context.Context, text string, display Display) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, apierrors.ErrEmptyInput
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return models.Message{}, apierrors.ErrBusy
	}
	defer s.inFlight.Store(false)

	if display == nil {
		display = NopDisplay{}
	}

	s.mu.Lock()
	s.turn++
	turn := s.turn
	s.mu.Unlock()

	start := time.Now()
	ctx = logging.WithSession(ctx, s.id)
	logger := logging.WithCtx(ctx, s.logger).With(zap.Int("turn", turn))

	user := models.NewMessage(models.RoleUser, text)
	if err := s.conv.Append(user); err != nil {
		return models.Message{}, err
	}
	display.AppendMessage(models.RoleUser, text)
	display.AppendMessage(models.RoleAssistant, "")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, stats, err := s.stream(ctx, display)
	if err != nil {
		fallback := models.NewMessage(models.RoleAssistant, models.FallbackText)
		_ = s.conv.Append(fallback)
		display.UpdateLastAssistantText(models.FallbackText)

		logger.Warn("turn failed",
			zap.Int("fragments", stats.Fragments),
			zap.Int("bytes", stats.Bytes),
			zap.Int("skipped_lines", stats.SkippedLines),
			zap.Duration("duration", time.Since(start)),
			zap.Int("status", apierrors.GetHTTPStatus(err)),
			zap.Bool("canceled", apierrors.IsCanceled(err)),
			zap.Error(err),
		)
		return fallback, err
	}

	assistant := models.NewMessage(models.RoleAssistant, reply)
	if err := s.conv.Append(assistant); err != nil {
		return models.Message{}, err
	}

	logger.Info("turn finished",
		zap.Int("fragments", stats.Fragments),
		zap.Int("bytes", stats.Bytes),
		zap.Int("skipped_lines", stats.SkippedLines),
		zap.Int("missing_fields", stats.MissingFields),
		zap.Duration("duration", time.Since(start)),
	)
	return assistant, nil
}

// stream opens the request and pushes the growing buffer after every fragment.
func (s *Session) stream(ctx context.Context, display Display) (string, StreamStats, error) {
	stream, err := s.client.OpenStream(ctx, s.conv.Snapshot())
	if err != nil {
		return "", StreamStats{}, err
	}
	defer stream.Close()

	var buf strings.Builder
	for stream.Next() {
		buf.WriteString(stream.Fragment())
		display.UpdateLastAssistantText(buf.String())
	}
	if err := stream.Err(); err != nil {
		return "", stream.Stats(), err
	}
	return buf.String(), stream.Stats(), nil
}
