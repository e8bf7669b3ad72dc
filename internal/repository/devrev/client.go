// Package devrev implements the repository interfaces against the DevRev
// HTTP API. It is the only write path to the CRM; nothing is persisted
// locally.
package devrev

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/airmeet-sync/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/airmeet-sync/pkg/errors"
	"github.com/jwalitptl/airmeet-sync/pkg/metrics"
)

type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	ContactCacheTTL time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	// contacts caches lookup-by-email results briefly so a burst of
	// activity webhooks for one attendee does not hammer the CRM.
	contacts *gocache.Cache
}

func NewClient(cfg Config, logger *zerolog.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.ContactCacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		breaker:  circuitbreaker.New(circuitbreaker.Settings{Name: "devrev"}),
		logger:   logger,
		metrics:  m,
		contacts: gocache.New(ttl, 2*ttl),
	}
}

// Configured reports whether an API key is present, for the debug status
// endpoint.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperrors.Upstream("failed to encode DevRev request", err)
		}
		body = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return apperrors.Upstream("failed to build DevRev request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	// The breaker counts transport-level failures only; HTTP error statuses
	// come back as responses and are handled below.
	start := time.Now()
	var resp *http.Response
	err = c.breaker.Execute(func() error {
		var doErr error
		resp, doErr = c.http.Do(req)
		return doErr
	})
	if c.metrics != nil {
		c.metrics.UpstreamLatency.WithLabelValues("devrev", operation).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.countCall(operation, "error")
		return apperrors.Upstream("DevRev API request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countCall(operation, "error")
		return apperrors.Upstream("failed to read DevRev response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.countCall(operation, fmt.Sprintf("%d", resp.StatusCode))
		c.logger.Error().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("DevRev API error")
		return apperrors.Upstream("DevRev API error", fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
	c.countCall(operation, "ok")

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Upstream("failed to decode DevRev response", err)
	}
	return nil
}

func (c *Client) countCall(operation, status string) {
	if c.metrics != nil {
		c.metrics.UpstreamCalls.WithLabelValues("devrev", operation, status).Inc()
	}
}
