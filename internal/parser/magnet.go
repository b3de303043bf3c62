package parser

import (
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anacrolix/torrent/metainfo"

	"github.com/amaumene/tamilarr/internal/models"
)

// UnknownMagnetName is used when a magnet carries no display name
const UnknownMagnetName = "Unknown"

var btihRegex = regexp.MustCompile(`(?i)xt=urn:btih:([a-f0-9]{40}|[a-z2-7]{32})(?:&|$)`)

// ParseMagnet canonicalizes a magnet URI. The info hash is returned as lowercase
// hex (base32 hashes are converted) and is empty when the URI carries none.
func ParseMagnet(uri string) models.MagnetRecord {
	record := models.MagnetRecord{
		MagnetURI:   strings.TrimSpace(uri),
		DisplayName: UnknownMagnetName,
	}

	if m, err := metainfo.ParseMagnetUri(record.MagnetURI); err == nil {
		record.InfoHash = m.InfoHash.HexString()
		if m.DisplayName != "" {
			record.DisplayName = m.DisplayName
		}
		return record
	}

	// The library rejects lowercase base32 and sloppy query strings
	if match := btihRegex.FindStringSubmatch(record.MagnetURI); match != nil {
		if hash, err := normalizeInfoHash(match[1]); err == nil {
			record.InfoHash = hash
		}
	}
	if name := displayName(record.MagnetURI); name != "" {
		record.DisplayName = name
	}

	return record
}

func normalizeInfoHash(raw string) (string, error) {
	if len(raw) == 40 {
		return strings.ToLower(raw), nil
	}
	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode base32 info hash: %w", err)
	}
	return hex.EncodeToString(decoded), nil
}

func displayName(uri string) string {
	_, query, found := strings.Cut(uri, "?")
	if !found {
		return ""
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		// Keep whatever parsed before the bad escape
		for _, part := range strings.Split(query, "&") {
			if value, ok := strings.CutPrefix(part, "dn="); ok {
				if decoded, err := url.QueryUnescape(value); err == nil {
					return strings.TrimSpace(decoded)
				}
				return strings.TrimSpace(strings.ReplaceAll(value, "+", " "))
			}
		}
		return ""
	}
	return strings.TrimSpace(values.Get("dn"))
}

// ExtractMagnets returns every magnet anchor of an HTML page, in document order,
// deduplicated by info hash (or by URI when no hash is present)
func ExtractMagnets(r io.Reader) ([]models.MagnetRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return MagnetsFromDocument(doc), nil
}

// MagnetsFromDocument is ExtractMagnets over an already parsed page
func MagnetsFromDocument(doc *goquery.Document) []models.MagnetRecord {
	var magnets []models.MagnetRecord
	seen := make(map[string]bool)

	doc.Find(`a[href^="magnet:"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		record := ParseMagnet(href)
		key := record.InfoHash
		if key == "" {
			key = record.MagnetURI
		}
		if seen[key] {
			return
		}
		seen[key] = true
		magnets = append(magnets, record)
	})

	return magnets
}
