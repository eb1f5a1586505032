package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

const defaultUserAgent = "lineupai/1.0"

// Client is a thin JSON convenience layer over the retrying Transport, used
// by the Sleeper and projection clients.
type Client struct {
	BaseURL   string
	UserAgent string
	Header    http.Header

	hc  *http.Client
	log zerolog.Logger
}

// NewClient builds a Client for baseURL on top of transport.
func NewClient(baseURL string, transport *Transport, log zerolog.Logger) *Client {
	return &Client{
		BaseURL:   baseURL,
		UserAgent: defaultUserAgent,
		Header:    http.Header{},
		hc:        &http.Client{Transport: transport},
		log:       log.With().Str("component", "httpx").Str("base_url", baseURL).Logger(),
	}
}

// HTTPClient returns an *http.Client backed by the same retrying transport,
// suitable for injecting into SDK clients.
func (c *Client) HTTPClient() *http.Client { return c.hc }

// Get fetches path (with optional query parameters) and returns the raw body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpx: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("httpx: GET %s: status %d", u, resp.StatusCode)
	}
	return body, nil
}

// GetJSON fetches path and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpx: decode %s: %w", path, err)
	}
	return nil
}
