package scraper

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/parser"
)

// ItemsPerFeed is how many of the newest feed items are visited
const ItemsPerFeed = 20

// Feed is an RSS 2.0 document
type Feed struct {
	XMLName xml.Name    `xml:"rss"`
	Channel FeedChannel `xml:"channel"`
}

// FeedChannel is the channel element of a feed
type FeedChannel struct {
	Title string     `xml:"title"`
	Items []FeedItem `xml:"item"`
}

// FeedItem is one forum topic announced in a feed
type FeedItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
}

// forum ids of the 1TamilMV sections, matched against the feed URL
var forumCategories = []struct {
	marker   string
	category string
}{
	{"forum/10", models.CategoryPreDVD},
	{"forum/11", models.CategoryWebHD},
	{"forum/12", models.CategoryHDRips},
	{"forum/17", models.CategoryHollywoodMulti},
	{"forum/14", models.CategoryHDTV},
	{"forum/19", models.CategorySeries},
}

// CategoryFromFeedURL maps a forum feed URL onto its release category
func CategoryFromFeedURL(feedURL string) string {
	for _, fc := range forumCategories {
		if strings.Contains(feedURL, fc.marker) {
			return fc.category
		}
	}
	return models.CategoryOther
}

// RSSScraper reads the forum RSS feeds and visits each topic for magnets
type RSSScraper struct {
	fetcher Fetcher
	feeds   []string
	logger  zerolog.Logger
}

// NewRSSScraper creates a scraper over the given feed URLs
func NewRSSScraper(fetcher Fetcher, feeds []string, logger zerolog.Logger) *RSSScraper {
	return &RSSScraper{
		fetcher: fetcher,
		feeds:   feeds,
		logger:  logger.With().Str("component", "rss_scraper").Logger(),
	}
}

// Source identifies the site this scraper reads
func (s *RSSScraper) Source() models.Source {
	return models.SourceTamilMV
}

// Scrape returns every topic of every feed that links at least one magnet.
// A failing feed or topic page is logged and skipped.
func (s *RSSScraper) Scrape(ctx context.Context) ([]models.ContentItem, error) {
	var items []models.ContentItem

	for _, feedURL := range s.feeds {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		feed, err := s.fetchFeed(ctx, feedURL)
		if err != nil {
			s.logger.Error().Err(err).Str("feed", feedURL).Msg("Failed to fetch feed")
			continue
		}

		category := CategoryFromFeedURL(feedURL)
		entries := feed.Channel.Items
		if len(entries) > ItemsPerFeed {
			entries = entries[:ItemsPerFeed]
		}

		accepted := 0
		for _, entry := range entries {
			item, ok := s.scrapeEntry(ctx, entry, category)
			if !ok {
				continue
			}
			items = append(items, item)
			accepted++
		}

		s.logger.Info().
			Str("feed", feedURL).
			Str("category", category).
			Int("entries", len(entries)).
			Int("accepted", accepted).
			Msg("Scraped feed")
	}

	return items, nil
}

func (s *RSSScraper) fetchFeed(ctx context.Context, feedURL string) (*Feed, error) {
	body, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var feed Feed
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to parse XML feed: %w", err)
	}
	return &feed, nil
}

func (s *RSSScraper) scrapeEntry(ctx context.Context, entry FeedItem, category string) (models.ContentItem, bool) {
	title := strings.TrimSpace(entry.Title)
	link := strings.TrimSpace(entry.Link)
	if title == "" || link == "" {
		return models.ContentItem{}, false
	}

	magnets := pageMagnets(ctx, s.fetcher, link, s.logger)
	if len(magnets) == 0 {
		return models.ContentItem{}, false
	}

	parsed := parser.ParseTitle(title)
	if category == models.CategorySeries {
		parsed.Type = models.ContentTypeSeries
	}

	return models.ContentItem{
		SourceTitle: title,
		SourceURL:   link,
		PublishedAt: parsePubDate(entry.PubDate),
		Parsed:      parsed,
		Magnets:     magnets,
		Source:      models.SourceTamilMV,
		Category:    category,
	}, true
}

var pubDateLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339}

func parsePubDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// pageMagnets fetches a page and extracts its magnets. Failures yield nil.
func pageMagnets(ctx context.Context, fetcher Fetcher, url string, logger zerolog.Logger) []models.MagnetRecord {
	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("Failed to fetch page")
		return nil
	}

	magnets, err := parser.ExtractMagnets(bytes.NewReader(body))
	if err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("Failed to extract magnets")
		return nil
	}
	return magnets
}
