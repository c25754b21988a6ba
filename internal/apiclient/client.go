package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cardscan/internal/api"
	"cardscan/internal/card"
	"cardscan/internal/services"
)

// ErrServerUnreachable marks transport failures reaching cardscand.
var ErrServerUnreachable = errors.New("cardscand unreachable")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the server error kind back onto the services sentinels.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case "batch_too_large":
		return services.ErrBatchTooLarge
	case "invalid_record":
		return services.ErrInvalidRecord
	case "not_found":
		return services.ErrCardNotFound
	case "no_text":
		return services.ErrNoTextDetected
	case "invalid_image":
		return services.ErrInvalidImage
	case "provider_error":
		return services.ErrProviderUnavailable
	default:
		return nil
	}
}

// Client calls the cardscand HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New constructs a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("server url required")
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Scan uploads the image files at paths to /api/scan.
func (c *Client) Scan(ctx context.Context, paths []string) (api.ScanResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, path := range paths {
		if err := addFile(mw, path); err != nil {
			return api.ScanResponse{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return api.ScanResponse{}, fmt.Errorf("encode upload: %w", err)
	}

	var resp api.ScanResponse
	err := c.do(ctx, http.MethodPost, "/api/scan", mw.FormDataContentType(), &body, &resp)
	return resp, err
}

func addFile(mw *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer file.Close()
	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read image %s: %w", path, err)
	}
	return nil
}

// Confirm merges cards into the ledger through /add-batch.
func (c *Client) Confirm(ctx context.Context, cards []card.Record) ([]api.MergeResult, error) {
	if cards == nil {
		cards = []card.Record{}
	}
	payload, err := json.Marshal(cards)
	if err != nil {
		return nil, fmt.Errorf("encode cards: %w", err)
	}
	var results []api.MergeResult
	err = c.do(ctx, http.MethodPost, "/add-batch", "application/json", bytes.NewReader(payload), &results)
	return results, err
}

// Cards lists ledger rows matching every filter entry.
func (c *Client) Cards(ctx context.Context, filter map[string]string) ([]card.Record, error) {
	path := "/api/cards"
	if len(filter) > 0 {
		keys := make([]string, 0, len(filter))
		for k := range filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := url.Values{}
		for _, k := range keys {
			values.Set(k, filter[k])
		}
		path += "?" + values.Encode()
	}
	var rows []card.Record
	err := c.do(ctx, http.MethodGet, path, "", nil, &rows)
	return rows, err
}

// Status fetches server status.
func (c *Client) Status(ctx context.Context) (api.Status, error) {
	var status api.Status
	err := c.do(ctx, http.MethodGet, "/api/status", "", nil, &status)
	return status, err
}

// CacheEntries lists the server's lookup cache.
func (c *Client) CacheEntries(ctx context.Context) (api.CacheListResponse, error) {
	var listing api.CacheListResponse
	err := c.do(ctx, http.MethodGet, "/api/cache", "", nil, &listing)
	return listing, err
}

// ClearCache empties the server's lookup cache.
func (c *Client) ClearCache(ctx context.Context) (int, error) {
	var resp api.CacheClearResponse
	err := c.do(ctx, http.MethodDelete, "/api/cache", "", nil, &resp)
	return resp.Removed, err
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %w", ErrServerUnreachable, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload api.ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Kind = payload.Kind
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
