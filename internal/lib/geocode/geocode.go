// Package geocode confirms that an inquiry destination is a real place by
// asking a Nominatim-compatible search API.
//
// The lookup is a soft dependency. Only an explicit empty result blocks a
// submission; a lookup that cannot be completed is reported as Unavailable
// and the caller carries on.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// Result is the outcome of a destination lookup.
type Result int

const (
	// Confirmed means at least one place matched.
	Confirmed Result = iota
	// NotFound means the lookup succeeded and nothing matched.
	NotFound
	// Unavailable means the lookup itself failed.
	Unavailable
)

func (r Result) String() string {
	switch r {
	case Confirmed:
		return "confirmed"
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Client queries the geocoding service.
type Client struct {
	enabled   bool
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// NewClient builds a Client from the geocoding config. Outbound requests go
// through the New Relic round tripper so they show up as external segments
// when the request context carries a transaction.
func NewClient(cfg config.GeocodingConfig, logger *zerolog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := &Client{
		enabled:   cfg.Enabled,
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout:   timeout,
			Transport: newrelic.NewRoundTripper(nil),
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Verify looks the destination up and returns the tagged outcome. It never
// returns an error: failures are logged and reported as Unavailable.
func (c *Client) Verify(ctx context.Context, destination string) Result {
	if !c.enabled {
		return Confirmed
	}

	places, err := c.search(ctx, destination)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("destination", destination).
			Msg("destination lookup unavailable, accepting submission")
		return Unavailable
	}

	if len(places) == 0 {
		c.logger.Info().Str("destination", destination).Msg("destination not found")
		return NotFound
	}

	c.logger.Debug().
		Str("destination", destination).
		Str("match", places[0].DisplayName).
		Msg("destination confirmed")
	return Confirmed
}

func (c *Client) search(ctx context.Context, query string) ([]place, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", c.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	// Nominatim's usage policy requires an identifying User-Agent.
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("geocoding api error: %s", resp.Status)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}

	return places, nil
}
