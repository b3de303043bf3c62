package fanart

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
)

// DefaultBaseURL is the fanart.tv v3 API root
const DefaultBaseURL = "https://webservice.fanart.tv/v3"

// ErrNoCredential is returned when FANART_API_KEY is not configured
var ErrNoCredential = errors.New("fanart API key is not configured")

// Images holds the first artwork of each kind, empty when fanart.tv has none
type Images struct {
	Poster     string `json:"poster,omitempty"`
	Background string `json:"background,omitempty"`
	Logo       string `json:"logo,omitempty"`
	Banner     string `json:"banner,omitempty"`
	Thumb      string `json:"thumb,omitempty"`
}

type image struct {
	URL  string `json:"url"`
	Lang string `json:"lang"`
}

type movieResponse struct {
	MoviePoster     []image `json:"movieposter"`
	MovieBackground []image `json:"moviebackground"`
	HDMovieLogo     []image `json:"hdmovielogo"`
	MovieLogo       []image `json:"movielogo"`
	MovieBanner     []image `json:"moviebanner"`
	MovieThumb      []image `json:"moviethumb"`
}

func first(sets ...[]image) string {
	for _, set := range sets {
		if len(set) > 0 {
			return set[0].URL
		}
	}
	return ""
}

// Client wraps direct fanart.tv API HTTP calls
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

// NewClient creates a new fanart.tv client
func NewClient(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  cfg.FanartAPIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "fanart").Logger(),
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

// MovieImages returns the artwork of a movie by IMDb id. A title fanart.tv
// does not know yields (nil, nil).
func (c *Client) MovieImages(ctx context.Context, imdbID string) (*Images, error) {
	if c.apiKey == "" {
		return nil, ErrNoCredential
	}

	endpoint := fmt.Sprintf("%s/movies/%s?%s", c.baseURL, url.PathEscape(imdbID), url.Values{"api_key": {c.apiKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result movieResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Images{
		Poster:     first(result.MoviePoster),
		Background: first(result.MovieBackground),
		Logo:       first(result.HDMovieLogo, result.MovieLogo),
		Banner:     first(result.MovieBanner),
		Thumb:      first(result.MovieThumb),
	}, nil
}
