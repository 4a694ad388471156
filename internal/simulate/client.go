package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
)

// Retry policy for backpressure responses.
const (
	maxAttempts  = 5
	retryBackoff = 100 * time.Millisecond
)

// errRetry marks a response that is worth retrying.
var errRetry = errors.New("retryable response")

// Client calls the wodboard HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
// It reports the number of retries it took.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
	}

	retries := 0
	for attempt := 1; ; attempt++ {
		err := c.once(ctx, method, path, payload, out)
		if err == nil || !errors.Is(err, errRetry) || attempt == maxAttempts {
			return retries, err
		}
		retries++
		select {
		case <-ctx.Done():
			return retries, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%s %s: HTTP %d: %w", method, path, resp.StatusCode, errRetry)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

type eventBody struct {
	Name        string `json:"name"`
	ScoringMode string `json:"scoring_mode"`
	Category    string `json:"category"`
	MaxPoints   int    `json:"max_points"`
	Status      string `json:"status,omitempty"`
	Order       int    `json:"order"`
	Description string `json:"description,omitempty"`
}

type teamBody struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Box      string `json:"box,omitempty"`
}

// PutEvent registers an event.
func (c *Client) PutEvent(ctx context.Context, ev model.Event) error {
	body := eventBody{
		Name:        ev.Name,
		ScoringMode: string(ev.ScoringMode),
		Category:    ev.Category,
		MaxPoints:   ev.MaxPoints,
		Status:      string(ev.Status),
		Order:       ev.Order,
		Description: ev.Description,
	}
	_, err := c.do(ctx, http.MethodPut, "/events/"+url.PathEscape(ev.ID), body, nil)
	return err
}

// PutTeam registers a team.
func (c *Client) PutTeam(ctx context.Context, t model.Team) error {
	body := teamBody{Name: t.Name, Category: t.Category, Box: t.Box}
	_, err := c.do(ctx, http.MethodPut, "/teams/"+url.PathEscape(t.ID), body, nil)
	return err
}

// SubmitResult posts a result and returns its id and the retries it took.
func (c *Client) SubmitResult(ctx context.Context, in types.ResultInput) (string, int, error) {
	var ack types.Accepted
	retries, err := c.do(ctx, http.MethodPost, "/results", in, &ack)
	return ack.ResultID, retries, err
}

// DeleteResult deletes a result.
func (c *Client) DeleteResult(ctx context.Context, id string) (int, error) {
	return c.do(ctx, http.MethodDelete, "/results/"+url.PathEscape(id), nil, nil)
}

// Standings fetches the standings of a category.
func (c *Client) Standings(ctx context.Context, category string) ([]types.StandingEntry, error) {
	var out []types.StandingEntry
	_, err := c.do(ctx, http.MethodGet, "/categories/"+url.PathEscape(category)+"/standings", nil, &out)
	return out, err
}
