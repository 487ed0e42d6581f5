package ai

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	maxResponseBytes = 16 << 20
	maxErrorBytes    = 1 << 20
)

// Client performs the single outbound call for a generation request.
// There is no retry: a failure is reported to the caller once.
type Client struct {
	registry *Registry
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(registry *Registry, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		registry: registry,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With("component", "ai"),
	}
}

func (c *Client) Registry() *Registry {
	return c.registry
}

// Complete sends prompt to p and returns the model text. Errors are
// *NetworkError, *HTTPError or *FormatError.
func (c *Client) Complete(ctx context.Context, p Provider, apiKey, prompt string) (string, error) {
	req, err := NewRequest(ctx, p, apiKey, prompt)
	if err != nil {
		return "", &NetworkError{Provider: p.Name(), Err: err}
	}

	c.logger.InfoContext(ctx, "calling provider", "provider", p.Name())
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "provider request failed", "provider", p.Name(), "error", err)
		return "", &NetworkError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		c.logger.ErrorContext(ctx, "provider returned error status",
			"provider", p.Name(), "status", resp.StatusCode, "body", string(body))
		return "", &HTTPError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &NetworkError{Provider: p.Name(), Err: err}
	}
	c.logger.InfoContext(ctx, "provider response received",
		"provider", p.Name(), "bytes", len(raw), "duration", time.Since(start))

	text, err := p.ExtractText(raw)
	if err != nil {
		c.logger.ErrorContext(ctx, "provider response not understood", "provider", p.Name(), "error", err)
		return "", err
	}
	c.logger.DebugContext(ctx, "provider response extracted", "provider", p.Name(), "length", len(text))
	return text, nil
}
