package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardscan/internal/services"
)

const component = "scryfall"

// Card is the subset of a Scryfall card object the resolver consumes.
type Card struct {
	Name       string   `json:"name"`
	TypeLine   string   `json:"type_line"`
	ManaCost   *string  `json:"mana_cost"`
	Colors     []string `json:"colors"`
	Power      *string  `json:"power"`
	Toughness  *string  `json:"toughness"`
	Keywords   []string `json:"keywords"`
	OracleText *string  `json:"oracle_text"`
}

// apiError models the Scryfall error object.
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

// Searcher defines the card lookups used by the resolver.
type Searcher interface {
	Named(ctx context.Context, fuzzy string) (*Card, error)
}

// Client provides access to the Scryfall API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// New creates a Scryfall client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("scryfall base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Named performs a fuzzy lookup of a single card by name. Fuzzy matching is
// entirely delegated to Scryfall.
func (c *Client) Named(ctx context.Context, fuzzy string) (*Card, error) {
	if strings.TrimSpace(fuzzy) == "" {
		return nil, services.Wrap(services.ErrCardNotFound, component, "named", "empty card name", nil)
	}
	endpoint, err := url.Parse(c.baseURL + "/cards/named")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "named", "parse scryfall url", err)
	}
	params := url.Values{}
	params.Set("fuzzy", fuzzy)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, component, "named", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, component, "named",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		detail := readErrorDetail(resp.Body)
		return nil, services.Wrap(services.ErrCardNotFound, component, "named",
			fmt.Sprintf("no card matches %q%s", fuzzy, detail), nil)
	case resp.StatusCode != http.StatusOK:
		detail := readErrorDetail(resp.Body)
		return nil, services.Wrap(services.ErrProviderUnavailable, component, "named",
			fmt.Sprintf("scryfall returned %d (latency=%v)%s", resp.StatusCode, latency, detail), nil)
	}

	var payload Card
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, component, "named", "decode card response", err)
	}
	if strings.TrimSpace(payload.Name) == "" {
		return nil, services.Wrap(services.ErrProviderUnavailable, component, "named", "card response missing name", nil)
	}
	return &payload, nil
}

func readErrorDetail(body io.Reader) string {
	var payload apiError
	if err := json.NewDecoder(io.LimitReader(body, 64*1024)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Details == "" {
		return ""
	}
	return " (" + payload.Details + ")"
}
