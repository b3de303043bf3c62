// Package parser turns scraped release names and pages into structured values.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/amaumene/tamilarr/internal/models"
)

// QualityTokens are checked in order; the first one found as a whole word wins
var QualityTokens = []string{
	"2160p", "4K", "1080p", "720p", "480p",
	"HDRip", "WEB-DL", "WEBRip", "BluRay", "BDRip", "DVDRip",
	"CAM", "HDTS", "PreDVD", "DVDScr",
}

var (
	yearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\((\d{4})\)`),
		regexp.MustCompile(`\[(\d{4})\]`),
		regexp.MustCompile(`\.(\d{4})\.`),
		regexp.MustCompile(`\b((?:19|20)\d{2})\b`),
	}

	seasonEpisodeRegex = regexp.MustCompile(`(?i)\bS(\d{1,2})(?:\s?E(\d{1,3}))?\b`)
	seasonWordRegex    = regexp.MustCompile(`(?i)\bSeason\s*(\d{1,2})\b`)
	episodeWordRegex   = regexp.MustCompile(`(?i)\b(?:EP|Episode)\s*\(?(\d{1,3})`)
	resolutionRegex    = regexp.MustCompile(`(?i)\b\d{3,4}p\b`)
	bracketRegex       = regexp.MustCompile(`[\[(][^\])]*[\])]`)
	sizeRegex          = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:GB|MB|TB)\b`)
	junkRegex          = regexp.MustCompile(`(?i)\b(?:x264|x265|h\.?264|h\.?265|hevc|avc|aac|ac3|dd\+?\s?[257]\.[01]|ddp?[257]\.[01]|atmos|esubs?|multi|audios?|dual|org|true|hq|hdr|sdr|10bit|\d+kbps|tamil|telugu|hindi|english|malayalam|kannada|uncut)\b`)
	separatorRegex     = regexp.MustCompile(`[._\-]+`)
	spaceRegex         = regexp.MustCompile(`\s+`)
	edgeJunkRegex      = regexp.MustCompile(`^[\s\-|:+&]+|[\s\-|:+&]+$`)
	sitePrefixRegex    = regexp.MustCompile(`(?i)^\s*www\.\S+\s*[-|]\s*`)

	qualityTokenRegexes = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(QualityTokens))
		for i, token := range QualityTokens {
			out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(token) + `\b`)
		}
		return out
	}()
)

// ParseTitle extracts the clean title, year, quality, type and season/episode
// from a release name. It is pure: equal input gives equal output.
func ParseTitle(raw string) models.ReleaseTitle {
	result := models.ReleaseTitle{
		RawTitle: raw,
		Type:     models.ContentTypeMovie,
	}

	yearSpan := []int(nil)
	for _, pattern := range yearPatterns {
		if loc := pattern.FindStringSubmatchIndex(raw); loc != nil {
			year, err := strconv.Atoi(raw[loc[2]:loc[3]])
			if err == nil && year >= 1900 && year <= 2099 {
				result.Year = year
				yearSpan = loc[:2]
				break
			}
		}
	}

	result.Quality = detectQuality(raw)

	if m := seasonEpisodeRegex.FindStringSubmatch(raw); m != nil {
		result.Type = models.ContentTypeSeries
		result.Season, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			result.Episode, _ = strconv.Atoi(m[2])
		}
	} else if m := seasonWordRegex.FindStringSubmatch(raw); m != nil {
		result.Type = models.ContentTypeSeries
		result.Season, _ = strconv.Atoi(m[1])
	}
	if result.Type == models.ContentTypeSeries && result.Episode == 0 {
		if m := episodeWordRegex.FindStringSubmatch(raw); m != nil {
			result.Episode, _ = strconv.Atoi(m[1])
		}
	}

	result.CleanTitle = cleanTitle(raw, yearSpan)
	return result
}

func detectQuality(raw string) string {
	for i, re := range qualityTokenRegexes {
		if re.MatchString(raw) {
			return QualityTokens[i]
		}
	}
	return ""
}

func cleanTitle(raw string, yearSpan []int) string {
	title := raw

	// Everything after the year is release noise
	if yearSpan != nil && yearSpan[0] > 0 {
		title = title[:yearSpan[0]]
	}

	// Series titles end where the season marker starts
	if loc := seasonEpisodeRegex.FindStringIndex(title); loc != nil && loc[0] > 0 {
		title = title[:loc[0]]
	}
	if loc := seasonWordRegex.FindStringIndex(title); loc != nil && loc[0] > 0 {
		title = title[:loc[0]]
	}

	title = sitePrefixRegex.ReplaceAllString(title, "")
	title = bracketRegex.ReplaceAllString(title, " ")
	title = seasonEpisodeRegex.ReplaceAllString(title, " ")
	title = seasonWordRegex.ReplaceAllString(title, " ")
	title = resolutionRegex.ReplaceAllString(title, " ")
	title = sizeRegex.ReplaceAllString(title, " ")
	for _, re := range qualityTokenRegexes {
		title = re.ReplaceAllString(title, " ")
	}
	title = junkRegex.ReplaceAllString(title, " ")
	title = separatorRegex.ReplaceAllString(title, " ")
	title = spaceRegex.ReplaceAllString(title, " ")
	title = edgeJunkRegex.ReplaceAllString(title, "")

	return strings.TrimSpace(title)
}

// Normalize lowercases s, strips diacritics and replaces punctuation with spaces
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
