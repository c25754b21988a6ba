package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"cardscan/internal/config"
	"cardscan/internal/services"
	"cardscan/internal/textutil"
)

const (
	component   = "vision"
	visionScope = "https://www.googleapis.com/auth/cloud-vision"

	// codeInvalidArgument is the google.rpc.Code Vision reports for
	// undecodable image bytes.
	codeInvalidArgument = 3
)

// Recognizer extracts the candidate card name from raw image bytes.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Client calls the Vision images:annotate endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Recognizer = (*Client)(nil)

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

// WithAPIKey authenticates requests with a Vision API key.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// New creates a Vision client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("vision base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the vision configuration section. An
// API key takes precedence over a credentials file.
func NewFromConfig(ctx context.Context, cfg config.Vision) (*Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return New(cfg.BaseURL, WithAPIKey(key), WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	path := strings.TrimSpace(cfg.CredentialsPath)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "configure",
			"vision.api_key or vision.credentials_path required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "configure", "read credentials file", err)
	}
	creds, err := google.CredentialsFromJSONWithParams(ctx, data, google.CredentialsParams{
		Scopes: []string{visionScope},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "configure", "parse credentials file", err)
	}
	httpClient := oauth2.NewClient(ctx, creds.TokenSource)
	httpClient.Timeout = timeout
	return New(cfg.BaseURL, WithHTTPClient(httpClient))
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	TextAnnotations []entityAnnotation `json:"textAnnotations"`
	Error           *status            `json:"error,omitempty"`
}

type entityAnnotation struct {
	Locale      string `json:"locale"`
	Description string `json:"description"`
}

type status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Recognize sends image to Vision text detection and returns the cleaned
// first line of the first annotation.
func (c *Client) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", services.Wrap(services.ErrInvalidImage, component, "annotate", "empty image", nil)
	}
	payload := annotateRequest{Requests: []imageRequest{{
		Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []feature{{Type: "TEXT_DETECTION"}},
	}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, component, "annotate", "encode request", err)
	}

	endpoint, err := url.Parse(c.baseURL + "/v1/images:annotate")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, component, "annotate", "parse vision url", err)
	}
	if c.apiKey != "" {
		params := url.Values{}
		params.Set("key", c.apiKey)
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, component, "annotate", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, component, "annotate",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", services.Wrap(services.ErrProviderUnavailable, component, "annotate",
			fmt.Sprintf("vision returned %d (latency=%v): %s", resp.StatusCode, latency, strings.TrimSpace(string(snippet))), nil)
	}

	var decoded annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, component, "annotate", "decode vision response", err)
	}
	if len(decoded.Responses) == 0 {
		return "", services.Wrap(services.ErrNoTextDetected, component, "annotate", "empty response", nil)
	}
	first := decoded.Responses[0]
	if first.Error != nil && first.Error.Code != 0 {
		marker := services.ErrProviderUnavailable
		if first.Error.Code == codeInvalidArgument {
			marker = services.ErrInvalidImage
		}
		return "", services.Wrap(marker, component, "annotate", first.Error.Message, nil)
	}
	if len(first.TextAnnotations) == 0 {
		return "", services.Wrap(services.ErrNoTextDetected, component, "annotate", "", nil)
	}

	candidate := textutil.CleanLine(textutil.FirstLine(first.TextAnnotations[0].Description))
	if candidate == "" {
		return "", services.Wrap(services.ErrNoTextDetected, component, "annotate", "first line is blank", nil)
	}
	return candidate, nil
}
