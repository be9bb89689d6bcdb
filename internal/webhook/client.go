// Package webhook implements the HTTP client for the local
// editor-integration extension. High-level intents ("send this prompt
// with this context") become HTTP calls against a fixed local base URL;
// heterogeneous server responses, including distinct status codes for
// domain errors, are normalized into one typed result shape.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"devbridge/cli/internal/logging"
)

const clientName = "devbridge"

type Client struct {
	webhookURL string
	baseURL    string
	http       *http.Client
	log        *slog.Logger

	requestTimeout time.Duration
	healthTimeout  time.Duration
	stuckThreshold time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

func WithHealthTimeout(d time.Duration) Option {
	return func(c *Client) { c.healthTimeout = d }
}

// WithStuckThreshold overrides the inactivity window after which a busy
// chat is treated as stuck.
func WithStuckThreshold(d time.Duration) Option {
	return func(c *Client) { c.stuckThreshold = d }
}

func withNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// New builds a client for webhookURL (e.g. http://localhost:9090/webhook).
// Auxiliary endpoints are derived from the URL with the trailing
// "/webhook" stripped.
func New(webhookURL string, opts ...Option) *Client {
	c := &Client{
		webhookURL:     webhookURL,
		baseURL:        strings.TrimSuffix(webhookURL, "/webhook"),
		http:           &http.Client{},
		log:            logging.Nop(),
		requestTimeout: 10 * time.Second,
		healthTimeout:  3 * time.Second,
		stuckThreshold: 60 * time.Second,
		now:            time.Now,
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendPrompt posts {prompt, context} to the webhook endpoint. The call
// is bounded by the request timeout; timeouts come back as a TIMEOUT
// result, never as an error.
func (c *Client) SendPrompt(ctx context.Context, prompt string, promptContext any) Result {
	body := map[string]any{"prompt": prompt}
	if promptContext != nil {
		body["context"] = promptContext
	}
	return c.post(ctx, c.webhookURL, body)
}

// SendAction posts the legacy generic envelope for discrete actions.
func (c *Client) SendAction(ctx context.Context, payload Payload) Result {
	return c.post(ctx, c.webhookURL, payload)
}

func (c *Client) post(ctx context.Context, url string, body any) Result {
	raw, err := json.Marshal(body)
	if err != nil {
		return Result{ErrorCode: ErrCodeUnknown, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return Result{ErrorCode: ErrCodeUnknown, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn("webhook request timed out", "url", url)
			return Result{ErrorCode: ErrCodeTimeout, Message: "request timed out"}
		}
		return Result{ErrorCode: ErrCodeConnection, Message: err.Error()}
	}
	defer func() { _ = res.Body.Close() }()

	return normalize(res)
}

// normalize maps the raw HTTP response to a tagged Result. Distinct
// status codes carry domain errors: 400 for a missing prompt, 503 when
// no workspace is open or the service is unavailable.
func normalize(res *http.Response) Result {
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return Result{ErrorCode: ErrCodeConnection, Message: err.Error()}
	}

	var wire response
	if len(data) > 0 {
		if err := json.Unmarshal(data, &wire); err != nil {
			if res.StatusCode >= 200 && res.StatusCode < 300 {
				return Result{ErrorCode: ErrCodeUnknown, Message: "unparseable server response"}
			}
			return Result{ErrorCode: ErrCodeRequestFailed, Message: strings.TrimSpace(string(data))}
		}
	}

	out := Result{
		Message:        wire.Message,
		RequestID:      wire.RequestID,
		Status:         wire.Status,
		Suggestions:    wire.Suggestions,
		ActionRequired: wire.ActionRequired,
	}
	if wire.Queue != nil {
		out.QueuePosition = wire.Queue.Position
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		out.Success = true
		return out
	case res.StatusCode == http.StatusBadRequest:
		out.ErrorCode = serverErrorOr(wire.Error, ErrCodeMissingPrompt)
		return out
	case res.StatusCode == http.StatusServiceUnavailable:
		out.ErrorCode = serverErrorOr(wire.Error, ErrCodeServiceUnavailable)
		return out
	default:
		out.ErrorCode = serverErrorOr(wire.Error, ErrCodeRequestFailed)
		return out
	}
}

func serverErrorOr(code, fallback string) string {
	if strings.TrimSpace(code) != "" {
		return code
	}
	return fallback
}

// TestConnection posts a client-identifying payload to /test and reports
// whether the extension echoed it.
func (c *Client) TestConnection(ctx context.Context) Result {
	return c.post(ctx, c.baseURL+"/test", map[string]any{
		"client":    clientName,
		"timestamp": c.now().UnixMilli(),
	})
}

func (c *Client) getJSON(ctx context.Context, url string, timeout time.Duration, v any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return res.StatusCode, err
	}
	return res.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
