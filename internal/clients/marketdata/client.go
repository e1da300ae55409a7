// Package marketdata fetches spot quotes over HTTP. It backs the scheduled
// pull refresh that keeps stored prices current when the realtime feed is
// down or a portfolio is not being watched.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const requestTimeout = 15 * time.Second

// Client talks to the quote service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a quote client for the given base URL.
func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log.With().Str("component", "marketdata").Logger(),
	}
}

type quoteResponse struct {
	Quotes map[string]float64 `json:"quotes"`
}

// Quotes fetches current prices for the given symbols. Symbols the service
// does not know are simply absent from the result.
func (c *Client) Quotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	endpoint := fmt.Sprintf("%s/quotes?symbols=%s", c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote service returned status %d", resp.StatusCode)
	}

	var decoded quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	c.log.Debug().Int("requested", len(symbols)).Int("returned", len(decoded.Quotes)).Msg("Fetched quotes")
	return decoded.Quotes, nil
}
