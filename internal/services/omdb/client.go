package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/config"
)

// DefaultBaseURL is the OMDb API endpoint
const DefaultBaseURL = "https://www.omdbapi.com/"

var (
	// ErrNoCredential is returned when OMDB_API_KEY is not configured
	ErrNoCredential = errors.New("omdb API key is not configured")
	// ErrNotFound is returned when OMDb has no such title
	ErrNotFound = errors.New("title not found")
)

// SearchResult is one hit of a title search
type SearchResult struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// Title is the detail record of one IMDb id
type Title struct {
	IMDbID     string `json:"imdbID"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Type       string `json:"Type"`
	Poster     string `json:"Poster"`
	Plot       string `json:"Plot"`
	Genre      string `json:"Genre"`
	Runtime    string `json:"Runtime"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Country    string `json:"Country"`
	IMDbRating string `json:"imdbRating"`
}

type searchResponse struct {
	Response string         `json:"Response"`
	Error    string         `json:"Error"`
	Search   []SearchResult `json:"Search"`
}

type titleResponse struct {
	Title
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// Client wraps direct OMDb API HTTP calls
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// NewClient creates a new OMDb client
func NewClient(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  cfg.OMDbAPIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "omdb").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return ErrNoCredential
	}

	apiURL, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid omdb URL: %w", err)
	}
	params.Set("apikey", c.apiKey)
	apiURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SearchTitle searches by title, optionally narrowed by year and type ("movie" or "series")
func (c *Client) SearchTitle(ctx context.Context, title string, year int, mediaType string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("s", title)
	if year > 0 {
		params.Set("y", strconv.Itoa(year))
	}
	if mediaType != "" {
		params.Set("type", mediaType)
	}

	var result searchResponse
	if err := c.get(ctx, params, &result); err != nil {
		return nil, err
	}
	if result.Response != "True" {
		c.logger.Debug().Str("title", title).Int("year", year).Str("reason", result.Error).Msg("No OMDb search results")
		return nil, nil
	}
	return result.Search, nil
}

// GetByID returns the full record of an IMDb id
func (c *Client) GetByID(ctx context.Context, imdbID string) (*Title, error) {
	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")

	var result titleResponse
	if err := c.get(ctx, params, &result); err != nil {
		return nil, err
	}
	if result.Response != "True" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, imdbID)
	}
	return &result.Title, nil
}

// Value returns s, or "" for OMDb's "N/A" placeholder
func Value(s string) string {
	if s == "N/A" {
		return ""
	}
	return s
}

// List splits a comma separated OMDb field
func List(s string) []string {
	s = Value(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// StartYear parses the first year of "2019" or "2019–2023"
func StartYear(s string) int {
	if len(s) < 4 {
		return 0
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return year
}
