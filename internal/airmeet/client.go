// Package airmeet is the client for the Airmeet event-platform API. Calls are
// not retried: a failure surfaces once, scoped to the request that made it.
package airmeet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/airmeet-sync/internal/model"
	"github.com/jwalitptl/airmeet-sync/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/airmeet-sync/pkg/errors"
	"github.com/jwalitptl/airmeet-sync/pkg/metrics"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg Config, logger *zerolog.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New(circuitbreaker.Settings{Name: "airmeet"}),
		logger:  logger,
		metrics: m,
	}
}

// Configured reports whether an API key is present, for the debug status
// endpoint.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) get(ctx context.Context, operation, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.Upstream("failed to build Airmeet request", err)
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
		c.metrics.UpstreamLatency.WithLabelValues("airmeet", operation).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.countCall(operation, "error")
		return apperrors.Upstream("Airmeet API request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countCall(operation, "error")
		return apperrors.Upstream("failed to read Airmeet response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.countCall(operation, fmt.Sprintf("%d", resp.StatusCode))
		c.logger.Error().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Airmeet API error")
		return apperrors.Upstream("Airmeet API error", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}
	c.countCall(operation, "ok")

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Upstream("failed to decode Airmeet response", err)
	}
	return nil
}

func (c *Client) countCall(operation, status string) {
	if c.metrics != nil {
		c.metrics.UpstreamCalls.WithLabelValues("airmeet", operation, status).Inc()
	}
}

// GetRegistration fetches the full registration record for an attendee.
// Either historical payload shape is accepted and normalized.
func (c *Client) GetRegistration(ctx context.Context, attendeeID string) (model.Registration, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "get_registration", "/attendees/"+attendeeID, &raw); err != nil {
		return model.Registration{}, err
	}

	reg, err := model.DecodeRegistration(raw)
	if err != nil {
		return model.Registration{}, apperrors.Upstream("unexpected Airmeet registration payload", err)
	}
	return reg, nil
}

// GetSessionActivity fetches one attendee's activity for a session.
func (c *Client) GetSessionActivity(ctx context.Context, attendeeID, sessionID string) (model.SessionActivity, error) {
	var activity model.SessionActivity
	path := fmt.Sprintf("/sessions/%s/attendees/%s", sessionID, attendeeID)
	if err := c.get(ctx, "get_session_activity", path, &activity); err != nil {
		return model.SessionActivity{}, err
	}
	return activity, nil
}

// GetBoothActivities fetches all booth activity for an attendee.
func (c *Client) GetBoothActivities(ctx context.Context, attendeeID string) ([]model.BoothActivity, error) {
	var activities []model.BoothActivity
	if err := c.get(ctx, "get_booth_activities", "/attendees/"+attendeeID+"/booth-activities", &activities); err != nil {
		return nil, err
	}
	return activities, nil
}
