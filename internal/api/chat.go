package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	http "github.com/bogdanfinn/fhttp"
	"go.uber.org/zap"

	apierrors "github.com/diogo/chatstream/internal/errors"
	"github.com/diogo/chatstream/internal/logging"
	"github.com/diogo/chatstream/internal/models"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 4096

// OpenStream posts the conversation and returns a stream over the response body.
// The caller must Close the stream. Cancelling ctx aborts the read.
func (c *Client) OpenStream(ctx context.Context, messages []models.Message) (*FragmentStream, error) {
	payload, err := json.Marshal(models.ChatRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	logger := logging.WithCtx(ctx, c.logger)
	logger.Debug("opening stream",
		zap.String("endpoint", c.endpoint),
		zap.Int("messages", len(messages)),
		zap.Int("payload_bytes", len(payload)),
	)

	resp, err := c.doer.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, apierrors.NewNetworkErrorWithEndpoint("open stream", c.endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp.Body)
		_ = resp.Body.Close()
		return nil, apierrors.NewAPIErrorWithBody(
			resp.StatusCode,
			c.endpoint,
			fmt.Sprintf("chat request failed with status %d", resp.StatusCode),
			body,
		)
	}

	return newFragmentStream(
		ctx,
		resp.Body,
		resp.Header.Get("Content-Type"),
		c.endpoint,
		c.framing,
		logger,
	), nil
}

func readErrorBody(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return string(data)
}
