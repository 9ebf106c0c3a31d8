// Package gateway is the HTTP client side of the itinerary API.
// Client implements syncer.Gateway.
package gateway

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

	"github.com/pkordes/itinerary-planner/internal/domain"
)

const tripsPath = "/api/trips"

// maxErrorBody caps how much of an error response is quoted in the error.
const maxErrorBody = 2048

// Client loads and saves the trip collection of one profile.
type Client struct {
	http      *http.Client
	baseURL   string
	profileID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client talking to the API at baseURL on behalf of profileID.
// An empty profileID lets the server pick its default profile.
func New(baseURL, profileID string, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		profileID: profileID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the stored collection. A body that is not a JSON array is
// treated as an empty collection.
func (c *Client) Load(ctx context.Context) ([]domain.Trip, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("gateway.Client.Load: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway.Client.Load: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("gateway.Client.Load: %w", err)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		if err == io.EOF {
			return []domain.Trip{}, nil
		}
		return nil, fmt.Errorf("gateway.Client.Load: decode: %w", err)
	}
	if !isArray(raw) {
		return []domain.Trip{}, nil
	}
	var trips []domain.Trip
	if err := json.Unmarshal(raw, &trips); err != nil {
		return nil, fmt.Errorf("gateway.Client.Load: decode: %w", err)
	}
	return trips, nil
}

// Save replaces the stored collection with trips.
func (c *Client) Save(ctx context.Context, trips []domain.Trip) error {
	if trips == nil {
		trips = []domain.Trip{}
	}
	body, err := json.Marshal(trips)
	if err != nil {
		return fmt.Errorf("gateway.Client.Save: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway.Client.Save: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway.Client.Save: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("gateway.Client.Save: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) endpoint() string {
	u := c.baseURL + tripsPath
	if c.profileID != "" {
		u += "?" + url.Values{"profileId": {c.profileID}}.Encode()
	}
	return u
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
