// Package syncclient pushes outbox tasks to the external system over HTTP.
//
// The external system exposes one resource per entity:
//
//	PUT    {base}/entities/{entityType}/{entityID}   body: JSON payload
//	DELETE {base}/entities/{entityType}/{entityID}
//
// Both operations are idempotent, so redelivery after a lost acknowledgement
// is harmless. Outbound calls are throttled by a token bucket.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/mentorbook-api/internal/config"
	"github.com/phrazzld/mentorbook-api/internal/outbox"
	"golang.org/x/time/rate"
)

// ErrUnexpectedStatus is returned when the external system answers with a
// status other than 2xx.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// Client implements outbox.SyncTarget.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ outbox.SyncTarget = (*Client)(nil)

// New creates a client from the HTTP sync settings.
func New(cfg config.HTTPSyncConfig, logger *slog.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid sync base URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With(slog.String("component", "sync_client")),
	}, nil
}

// Upsert implements outbox.SyncTarget.
func (c *Client) Upsert(ctx context.Context, entityType, entityID string, payload json.RawMessage) error {
	body := payload
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	return c.do(ctx, http.MethodPut, entityType, entityID, body)
}

// Delete implements outbox.SyncTarget. A 404 counts as success.
func (c *Client) Delete(ctx context.Context, entityType, entityID string) error {
	return c.do(ctx, http.MethodDelete, entityType, entityID, nil)
}

func (c *Client) entityURL(entityType, entityID string) string {
	return fmt.Sprintf("%s/entities/%s/%s", c.baseURL, url.PathEscape(entityType), url.PathEscape(entityID))
}

func (c *Client) do(ctx context.Context, method, entityType, entityID string, body []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.entityURL(entityType, entityID), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", method, entityType, entityID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		c.logger.DebugContext(ctx, "entity already absent",
			slog.String("entity_type", entityType),
			slog.String("entity_id", entityID))
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: %s %s/%s returned %d: %s",
		ErrUnexpectedStatus, method, entityType, entityID, resp.StatusCode, strings.TrimSpace(string(detail)))
}
