package api

import (
	"testing"

	"go.uber.org/zap"

	"github.com/diogo/chatstream/internal/models"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name         string
		opts         []ClientOption
		wantErr      bool
		wantEndpoint string
		wantFraming  string
	}{
		{
			name:         "defaults",
			opts:         []ClientOption{WithHTTPClient(&MockHttpClient{})},
			wantEndpoint: models.DefaultEndpoint,
			wantFraming:  FramingLine,
		},
		{
			name: "custom endpoint and framing",
			opts: []ClientOption{
				WithHTTPClient(&MockHttpClient{}),
				WithEndpoint("  https://chat.example.com/api/chat  "),
				WithFraming(FramingChunk),
			},
			wantEndpoint: "https://chat.example.com/api/chat",
			wantFraming:  FramingChunk,
		},
		{
			name:    "empty endpoint",
			opts:    []ClientOption{WithHTTPClient(&MockHttpClient{}), WithEndpoint(" ")},
			wantErr: true,
		},
		{
			name:    "unknown framing",
			opts:    []ClientOption{WithHTTPClient(&MockHttpClient{}), WithFraming("sse")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if client.Endpoint() != tt.wantEndpoint {
				t.Errorf("Endpoint() = %s, want %s", client.Endpoint(), tt.wantEndpoint)
			}
			if client.Framing() != tt.wantFraming {
				t.Errorf("Framing() = %s, want %s", client.Framing(), tt.wantFraming)
			}
		})
	}
}

func TestNewClient_BuildsTLSClient(t *testing.T) {
	client, err := NewClient(WithTimeoutSeconds(10), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if client.doer == nil {
		t.Fatal("expected a default HTTP client")
	}
}

func TestWithHeader(t *testing.T) {
	client, err := NewClient(
		WithHTTPClient(&MockHttpClient{}),
		WithHeader("X-Trace", "abc"),
		WithHeader("Accept", "application/x-ndjson"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if client.headers["X-Trace"] != "abc" {
		t.Errorf("X-Trace header = %q", client.headers["X-Trace"])
	}
	if client.headers["Accept"] != "application/x-ndjson" {
		t.Errorf("Accept header = %q", client.headers["Accept"])
	}
	if client.headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type header = %q", client.headers["Content-Type"])
	}
}
