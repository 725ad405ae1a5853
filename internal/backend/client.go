package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nkiryanov/doorly/internal/apperrors"
	"github.com/nkiryanov/doorly/internal/logger"
)

const (
	DefaultTimeout = 10 * time.Second

	// Upper bound of response body read from the backend
	maxBodySize = 1 << 20

	retryDelay = 200 * time.Millisecond
)

type Config struct {
	// Backend REST API base url, required
	BaseURL string

	// Timeout of every single attempt. DefaultTimeout if not set
	Timeout time.Duration

	// How many times to repeat request on network errors or 5xx answers
	Retries int

	// Optional, http.Client{} is used if not set
	HTTPClient *http.Client
}

type Client struct {
	baseURL *url.URL
	timeout time.Duration
	retries int

	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, l logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, apperrors.ErrMissingBaseURL
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", apperrors.ErrMissingBaseURL, cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &Client{
		baseURL: base,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		client:  cfg.HTTPClient,
		logger:  l.WithGroup("backend"),
	}, nil
}

// BaseURL the client sends requests to
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

type call struct {
	method string
	path   string
	bearer string
	in     any
	out    any
}

func (c *Client) do(ctx context.Context, cl call) error {
	var body []byte
	if cl.in != nil {
		b, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = b
	}

	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", apperrors.ErrBackendUnavailable, ctx.Err())
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
		}

		retry, err := c.attempt(ctx, cl, body, requestID)
		if err == nil {
			return nil
		}

		lastErr = err
		if !retry {
			return err
		}

		c.logger.Warn("Backend request failed", "path", cl.path, "attempt", attempt+1, "error", err)
	}

	return lastErr
}

// attempt sends request once. Returns whether the failure is worth retrying
func (c *Client) attempt(ctx context.Context, cl call, body []byte, requestID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL.String()+cl.path, reader)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+cl.bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("%w: %w", apperrors.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return true, fmt.Errorf("%w: failed to read response: %w", apperrors.ErrBackendUnavailable, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return true, newError(resp.StatusCode, respBody)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, newError(resp.StatusCode, respBody)
	}

	if cl.out == nil {
		return false, nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return false, fmt.Errorf("%w: empty body", apperrors.ErrMalformedResponse)
	}
	if err := json.Unmarshal(respBody, cl.out); err != nil {
		return false, fmt.Errorf("%w: %w", apperrors.ErrMalformedResponse, err)
	}

	c.logger.Debug("Backend response", "path", cl.path, "status", resp.StatusCode)
	return false, nil
}
