package api

import (
	"io"
	"strings"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
)

// MockHttpClient is a Doer that records requests and serves a canned response
type MockHttpClient struct {
	StatusCode  int
	Body        io.ReadCloser
	ContentType string
	Err         error

	mu       sync.Mutex
	requests []*fhttp.Request
	payloads []string
}

func (m *MockHttpClient) Do(req *fhttp.Request) (*fhttp.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		m.payloads = append(m.payloads, string(data))
	}

	if m.Err != nil {
		return nil, m.Err
	}

	body := m.Body
	if body == nil {
		body = io.NopCloser(strings.NewReader(""))
	}
	header := fhttp.Header{}
	if m.ContentType != "" {
		header.Set("Content-Type", m.ContentType)
	}
	return &fhttp.Response{
		StatusCode: m.StatusCode,
		Header:     header,
		Body:       body,
		Request:    req,
	}, nil
}

func (m *MockHttpClient) lastRequest() *fhttp.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *MockHttpClient) lastPayload() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.payloads) == 0 {
		return ""
	}
	return m.payloads[len(m.payloads)-1]
}

// trackingBody reports whether it was closed
type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func collect(s *FragmentStream) []string {
	var out []string
	for s.Next() {
		out = append(out, s.Fragment())
	}
	return out
}
