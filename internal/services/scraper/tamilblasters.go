package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/parser"
)

const (
	// MaxPosts is how many post pages are visited per scrape
	MaxPosts = 15
	// PostDelay separates consecutive post fetches
	PostDelay = 500 * time.Millisecond
	// MainPageTitle names the item holding magnets found on the front page
	MainPageTitle = "TamilBlasters Main Page"
)

const postSelector = "article a, .entry-title a, .post-title a, h2 a, h3 a"

var (
	yearLikeRegex       = regexp.MustCompile(`\d{4}`)
	resolutionLikeRegex = regexp.MustCompile(`(?i)\d{3,4}p`)
	listingPathMarkers  = []string{"/category/", "/tag/", "/page/"}
	releaseWords        = []string{"tamil", "telugu", "hindi", "download"}
)

type postLink struct {
	URL   string
	Title string
}

// TamilBlastersScraper reads the listing site front page and visits its posts
type TamilBlastersScraper struct {
	fetcher  Fetcher
	baseURL  string
	maxPosts int
	delay    time.Duration
	logger   zerolog.Logger
}

// NewTamilBlastersScraper creates a scraper rooted at baseURL
func NewTamilBlastersScraper(fetcher Fetcher, baseURL string, logger zerolog.Logger) *TamilBlastersScraper {
	return &TamilBlastersScraper{
		fetcher:  fetcher,
		baseURL:  baseURL,
		maxPosts: MaxPosts,
		delay:    PostDelay,
		logger:   logger.With().Str("component", "tamilblasters_scraper").Logger(),
	}
}

// Source identifies the site this scraper reads
func (s *TamilBlastersScraper) Source() models.Source {
	return models.SourceTamilBlasters
}

// Scrape returns the front page magnets (as one item) and every visited post
// that links at least one magnet. A failing post page is logged and skipped.
func (s *TamilBlastersScraper) Scrape(ctx context.Context) ([]models.ContentItem, error) {
	body, err := s.fetcher.Fetch(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch front page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse front page: %w", err)
	}

	var items []models.ContentItem

	if magnets := parser.MagnetsFromDocument(doc); len(magnets) > 0 {
		items = append(items, models.ContentItem{
			SourceTitle: MainPageTitle,
			SourceURL:   s.baseURL,
			Parsed: models.ReleaseTitle{
				RawTitle:   MainPageTitle,
				CleanTitle: "TamilBlasters",
				Type:       models.ContentTypeMovie,
			},
			Magnets:  magnets,
			Source:   models.SourceTamilBlasters,
			Category: models.CategoryMain,
		})
	}

	links := s.postLinks(doc)
	s.logger.Info().Int("posts", len(links)).Msg("Found post links")
	if len(links) > s.maxPosts {
		links = links[:s.maxPosts]
	}

	for i, post := range links {
		if i > 0 {
			if err := sleep(ctx, s.delay); err != nil {
				return items, err
			}
		}

		magnets := pageMagnets(ctx, s.fetcher, post.URL, s.logger)
		if len(magnets) == 0 {
			continue
		}

		parsed := parser.ParseTitle(post.Title)
		category := models.CategoryMovies
		if parsed.Type == models.ContentTypeSeries {
			category = models.CategorySeries
		}

		items = append(items, models.ContentItem{
			SourceTitle: post.Title,
			SourceURL:   post.URL,
			Parsed:      parsed,
			Magnets:     magnets,
			Source:      models.SourceTamilBlasters,
			Category:    category,
		})
	}

	return items, nil
}

// postLinks collects candidate post links in document order, unique by URL:
// first the same-host article headings, then any anchor whose text looks like
// a release name
func (s *TamilBlastersScraper) postLinks(doc *goquery.Document) []postLink {
	host := hostOf(s.baseURL)
	seen := make(map[string]bool)
	var links []postLink

	add := func(href, title string) {
		if seen[href] {
			return
		}
		seen[href] = true
		links = append(links, postLink{URL: href, Title: title})
	}

	doc.Find(postSelector).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := strings.TrimSpace(sel.Text())
		if href == "" || title == "" || host == "" || !strings.Contains(href, host) {
			return
		}
		for _, marker := range listingPathMarkers {
			if strings.Contains(href, marker) {
				return
			}
		}
		add(href, title)
	})

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := strings.TrimSpace(sel.Text())
		if href == "" || strings.HasPrefix(href, "magnet:") || len(title) <= 10 {
			return
		}
		if looksLikeRelease(title) {
			add(href, title)
		}
	})

	return links
}

func looksLikeRelease(title string) bool {
	if !yearLikeRegex.MatchString(title) {
		return false
	}
	if resolutionLikeRegex.MatchString(title) {
		return true
	}
	lower := strings.ToLower(title)
	for _, word := range releaseWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
