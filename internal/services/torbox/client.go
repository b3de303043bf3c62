package torbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/metrics"
)

// DefaultBaseURL is the TorBox v1 API root
const DefaultBaseURL = "https://api.torbox.app/v1/api"

// ErrNoCredential is returned when neither the caller nor the configuration supplies an API key
var ErrNoCredential = errors.New("torbox API key is not configured")

// Client talks to the TorBox torrent API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another API root
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a new TorBox client. An empty API key is allowed: every
// call must then carry the caller's own key.
func NewClient(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  cfg.TorBoxAPIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "torbox").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredential reports whether a call with apiKey would be authenticated
func (c *Client) HasCredential(apiKey string) bool {
	return c.key(apiKey) != ""
}

func (c *Client) key(apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	return c.apiKey
}

// response is the envelope of every TorBox reply
type response[T any] struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	Detail  string  `json:"detail"`
	Data    T       `json:"data"`
}

func (c *Client) newRequest(ctx context.Context, apiKey, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	key := c.key(apiKey)
	if key == "" {
		return nil, ErrNoCredential
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	return req, nil
}

// do executes req and decodes the envelope's data into out
func do[T any](c *Client, operation string, req *http.Request, out *T) error {
	err := c.execute(req, out)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	metrics.DebridRequests.WithLabelValues(operation, result).Inc()
	return err
}

func (c *Client) execute(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	c.logger.Debug().
		Str("path", req.URL.Path).
		Int("status_code", resp.StatusCode).
		Int("bytes", len(bodyBytes)).
		Msg("TorBox API response")

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func envelopeError(detail string, apiErr *string) error {
	if detail == "" {
		detail = "unknown error"
	}
	if apiErr != nil && *apiErr != "" {
		return fmt.Errorf("%s: %s", *apiErr, detail)
	}
	return errors.New(detail)
}
