package api

import (
	"context"
	"fmt"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"go.uber.org/zap"

	"github.com/diogo/chatstream/internal/models"
)

// Framing modes for splitting a response body into lines
const (
	// FramingLine buffers an incomplete trailing line until its newline arrives.
	// It is the default. Older clients parsed each read on its own, which
	// FramingChunk keeps for servers that rely on it.
	FramingLine = "line"
	// FramingChunk splits every read on its own, so a line cut between two reads is lost.
	FramingChunk = "chunk"
)

// Doer sends a single HTTP request. tls_client.HttpClient satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StreamOpener starts a streamed chat completion for a conversation snapshot
type StreamOpener interface {
	OpenStream(ctx context.Context, messages []models.Message) (*FragmentStream, error)
}

// Client posts conversations to the chat endpoint
type Client struct {
	doer           Doer
	endpoint       string
	framing        string
	timeoutSeconds int
	headers        map[string]string
	logger         *zap.Logger
}

var _ StreamOpener = (*Client)(nil)

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithEndpoint sets the chat URL
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = strings.TrimSpace(endpoint)
	}
}

// WithHTTPClient replaces the TLS client, mainly for tests
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithTimeoutSeconds sets the transport timeout. 0 means no limit.
func WithTimeoutSeconds(seconds int) ClientOption {
	return func(c *Client) {
		c.timeoutSeconds = seconds
	}
}

// WithFraming selects FramingLine or FramingChunk
func WithFraming(framing string) ClientOption {
	return func(c *Client) {
		c.framing = framing
	}
}

// WithHeader adds or overrides a request header
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithLogger sets the logger used for request and stream diagnostics
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client. Without WithHTTPClient it builds a tls-client
// with a Chrome profile.
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		endpoint:       models.DefaultEndpoint,
		framing:        FramingLine,
		timeoutSeconds: 300,
		headers:        models.DefaultHeaders(),
		logger:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if client.framing != FramingLine && client.framing != FramingChunk {
		return nil, fmt.Errorf("unknown framing %q", client.framing)
	}

	if client.doer == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(client.timeoutSeconds),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.doer = httpClient
	}

	return client, nil
}

// Endpoint returns the chat URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Framing returns the framing mode
func (c *Client) Framing() string {
	return c.framing
}
