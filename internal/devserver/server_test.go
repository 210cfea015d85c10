package devserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/chatstream/internal/api"
	"github.com/diogo/chatstream/internal/devserver"
	apierrors "github.com/diogo/chatstream/internal/errors"
	"github.com/diogo/chatstream/internal/models"
)

// stdDoer sends fhttp requests through net/http so the client can talk to httptest servers
type stdDoer struct {
	client *http.Client
}

func (d stdDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	out, err := http.NewRequestWithContext(req.Context(), req.Method, req.URL.String(), body)
	if err != nil {
		return nil, err
	}
	out.Header = http.Header(req.Header.Clone())

	resp, err := d.client.Do(out)
	if err != nil {
		return nil, err
	}
	return &fhttp.Response{
		Status:     resp.Status,
		StatusCode: resp.StatusCode,
		Header:     fhttp.Header(resp.Header),
		Body:       resp.Body,
	}, nil
}

func newClient(t *testing.T, srv *httptest.Server) *api.Client {
	t.Helper()
	client, err := api.NewClient(
		api.WithHTTPClient(stdDoer{client: srv.Client()}),
		api.WithEndpoint(srv.URL+devserver.ChatPath),
	)
	require.NoError(t, err)
	return client
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Hi", []string{"Hi"}},
		{"Hi there!", []string{"Hi", " there!"}},
		{"a  b", []string{"a", "  b"}},
		{" lead", []string{" lead"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := devserver.Split(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, strings.Join(got, ""))
		})
	}
}

func TestEchoReply(t *testing.T) {
	msgs := []models.Message{
		models.NewMessage(models.RoleSystem, "sys"),
		models.NewMessage(models.RoleUser, "Hello"),
	}
	assert.Equal(t, "You said: Hello (turn 1)", devserver.EchoReply(msgs))
	assert.Equal(t, "Nothing to answer.", devserver.EchoReply(nil))
}

func TestChat_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(devserver.New(devserver.Options{
		Reply: devserver.Fixed("Hi there!"),
		Noise: true,
	}).Handler())
	defer srv.Close()

	session := api.NewSession(newClient(t, srv), "You are a test assistant.")
	display := &api.MemoryDisplay{}

	reply, err := session.SendMessage(context.Background(), "Hello", display)
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", reply.Content)
	assert.Equal(t, []models.Message{
		models.NewMessage(models.RoleSystem, "You are a test assistant."),
		models.NewMessage(models.RoleUser, "Hello"),
		models.NewMessage(models.RoleAssistant, "Hi there!"),
	}, session.Snapshot())
	assert.Equal(t, 2, display.Updates())
}

func TestChat_EchoesConversation(t *testing.T) {
	srv := httptest.NewServer(devserver.New(devserver.Options{}).Handler())
	defer srv.Close()

	session := api.NewSession(newClient(t, srv), "sys")
	_, err := session.SendMessage(context.Background(), "first", nil)
	require.NoError(t, err)
	reply, err := session.SendMessage(context.Background(), "second", nil)
	require.NoError(t, err)

	assert.Equal(t, "You said: second (turn 2)", reply.Content)
	assert.Equal(t, 5, session.Conversation().Len())
}

func TestChat_FailStatus(t *testing.T) {
	srv := httptest.NewServer(devserver.New(devserver.Options{FailStatus: http.StatusInternalServerError}).Handler())
	defer srv.Close()

	session := api.NewSession(newClient(t, srv), "sys")
	reply, err := session.SendMessage(context.Background(), "Hello", nil)
	require.Error(t, err)
	assert.Equal(t, 500, apierrors.GetHTTPStatus(err))
	assert.Equal(t, models.FallbackText, reply.Content)
	assert.Equal(t, 3, session.Conversation().Len())
	assert.False(t, session.InFlight())
}

func TestChat_RejectsBadRequests(t *testing.T) {
	srv := httptest.NewServer(devserver.New(devserver.Options{}).Handler())
	defer srv.Close()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"no messages", `{"messages":[]}`},
		{"unknown role", `{"messages":[{"role":"tool","content":"x"}]}`},
		{"last not user", `{"messages":[{"role":"system","content":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+devserver.ChatPath, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestChat_StreamsNDJSON(t *testing.T) {
	srv := httptest.NewServer(devserver.New(devserver.Options{Reply: devserver.Fixed("one two")}).Handler())
	defer srv.Close()

	payload, _ := json.Marshal(models.ChatRequest{Messages: []models.Message{
		models.NewMessage(models.RoleUser, "x"),
	}})
	resp, err := http.Post(srv.URL+devserver.ChatPath, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/x-ndjson")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"response":"one"}`+"\n"+`{"response":" two"}`+"\n", string(data))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(devserver.New(devserver.Options{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}
