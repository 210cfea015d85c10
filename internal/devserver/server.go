// Package devserver is a local backend that speaks the chat stream protocol.
// It answers every turn with a canned reply split into NDJSON fragments.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/diogo/chatstream/internal/models"
)

// ChatPath is the route the chat handler is mounted on
const ChatPath = "/api/chat"

// ReplyFunc produces the full assistant reply for a conversation
type ReplyFunc func(messages []models.Message) string

// Options configures the handler
type Options struct {
	// Delay is slept between fragments.
	Delay time.Duration
	// Reply builds the answer. Defaults to EchoReply.
	Reply ReplyFunc
	// FailStatus, when non-zero, makes every chat request fail with this status.
	FailStatus int
	// Noise interleaves empty lines and objects without a response field.
	Noise bool
	Logger *zap.Logger
}

// Server wraps an echo instance serving the chat route
type Server struct {
	echo *echo.Echo
	opts Options
}

// New builds the server and registers its routes
func New(opts Options) *Server {
	if opts.Reply == nil {
		opts.Reply = EchoReply
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, opts: opts}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(s.requestLogger())

	e.GET("/api/health", s.health)
	e.POST(ChatPath, s.chat)

	return s
}

// Handler exposes the server as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.opts.Logger.Info("dev server listening", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.opts.Logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "chatstream-dev",
	})
}

func (s *Server) chat(c echo.Context) error {
	if s.opts.FailStatus != 0 {
		return echo.NewHTTPError(s.opts.FailStatus, "configured failure")
	}

	var req models.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if err := validateRequest(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson; charset=utf-8")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	enc := json.NewEncoder(resp)
	for i, fragment := range Split(s.opts.Reply(req.Messages)) {
		if s.opts.Noise && i%2 == 1 {
			_, _ = resp.Write([]byte("\n{\"done\":false}\n"))
		}
		if err := enc.Encode(map[string]string{models.ResponseField: fragment}); err != nil {
			return nil
		}
		resp.Flush()

		if s.opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.opts.Delay):
			}
		}
	}
	return nil
}

func validateRequest(req models.ChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d has unknown role %q", i, m.Role)
		}
	}
	if req.Messages[len(req.Messages)-1].Role != models.RoleUser {
		return fmt.Errorf("last message must come from the user")
	}
	return nil
}

// EchoReply answers with the last user message
func EchoReply(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return fmt.Sprintf("You said: %s (turn %d)", messages[i].Content, userTurns(messages))
		}
	}
	return "Nothing to answer."
}

func userTurns(messages []models.Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == models.RoleUser {
			n++
		}
	}
	return n
}

// Split cuts text into word fragments. Each fragment after the first keeps
// its leading space, so concatenating them gives back text.
func Split(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 1; i < len(text); i++ {
		if text[i] == ' ' && text[i-1] != ' ' {
			out = append(out, text[start:i])
			start = i
		}
	}
	return append(out, text[start:])
}

// Fixed returns a ReplyFunc that always answers text
func Fixed(text string) ReplyFunc {
	return func([]models.Message) string { return text }
}
