package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Attributes are the display details of a release used for stream labels
type Attributes struct {
	Resolution string   // 4K, 1080p, 720p, 480p, CAM, HDTS, PreDVD or Unknown
	Source     string   // BluRay, WEB-DL, WEBRip, HDRip, DVDRip, HDTV or empty
	Codec      string   // HEVC, H.264, AV1 or empty
	Audio      []string // Atmos, TrueHD, DTS-HD, DTS, DD+, DD5.1, AAC
	Languages  []string
	MultiAudio bool
	SizeBytes  int64
}

type marker struct {
	label  string
	tokens []string
}

var (
	resolutionMarkers = []marker{
		{"4K", []string{"2160p", "4k", "uhd"}},
		{"1080p", []string{"1080p"}},
		{"720p", []string{"720p"}},
		{"480p", []string{"480p"}},
		{"CAM", []string{"hdcam", "cam"}},
		{"HDTS", []string{"hdts", "telesync"}},
		{"PreDVD", []string{"predvd", "dvdscr"}},
	}
	sourceMarkers = []marker{
		{"BluRay", []string{"bluray", "bdrip", "brrip"}},
		{"WEB-DL", []string{"web-dl", "webdl"}},
		{"WEBRip", []string{"webrip"}},
		{"HDRip", []string{"hdrip"}},
		{"DVDRip", []string{"dvdrip"}},
		{"HDTV", []string{"hdtv"}},
	}
	codecMarkers = []marker{
		{"HEVC", []string{"x265", "hevc", "h265", "h.265"}},
		{"H.264", []string{"x264", "h264", "h.264", "avc"}},
		{"AV1", []string{"av1"}},
	}
	audioMarkers = []marker{
		{"Atmos", []string{"atmos"}},
		{"TrueHD", []string{"truehd"}},
		{"DTS-HD", []string{"dts-hd", "dts hd"}},
		{"DTS", []string{"dts"}},
		{"DD+", []string{"dd+", "ddp", "eac3"}},
		{"DD5.1", []string{"dd5.1", "ac3"}},
		{"AAC", []string{"aac"}},
	}
	languageMarkers = []marker{
		{"Tamil", []string{"tamil", "tam"}},
		{"Telugu", []string{"telugu", "tel"}},
		{"Hindi", []string{"hindi", "hin"}},
		{"English", []string{"english", "eng"}},
		{"Malayalam", []string{"malayalam", "mal"}},
		{"Kannada", []string{"kannada", "kan"}},
	}

	sizeValueRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(TB|GB|MB)\b`)
	wordRegex      = regexp.MustCompile(`[a-z0-9+]+`)
)

func (m marker) in(lower string) bool {
	for _, token := range m.tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func firstMarker(lower string, markers []marker) string {
	for _, m := range markers {
		if m.in(lower) {
			return m.label
		}
	}
	return ""
}

// Describe extracts display attributes from a release or file name
func Describe(name string) Attributes {
	lower := strings.ToLower(name)

	attrs := Attributes{
		Resolution: firstMarker(lower, resolutionMarkers),
		Source:     firstMarker(lower, sourceMarkers),
		Codec:      firstMarker(lower, codecMarkers),
		SizeBytes:  ParseSize(name),
		MultiAudio: strings.Contains(lower, "multi") || strings.Contains(lower, "dual"),
	}
	if attrs.Resolution == "" {
		attrs.Resolution = "Unknown"
	}

	for _, m := range audioMarkers {
		if m.in(lower) {
			attrs.Audio = append(attrs.Audio, m.label)
		}
	}

	// Short language codes only count as whole words
	words := make(map[string]bool)
	for _, w := range wordRegex.FindAllString(lower, -1) {
		words[w] = true
	}
	for _, m := range languageMarkers {
		if strings.Contains(lower, m.tokens[0]) || words[m.tokens[1]] {
			attrs.Languages = append(attrs.Languages, m.label)
		}
	}

	return attrs
}

// HasLanguage reports whether the release carries lang (case-insensitive)
func (a Attributes) HasLanguage(lang string) bool {
	for _, l := range a.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// LanguageLabel is "Multi Audio" for multi-track releases, else the languages joined by "+"
func (a Attributes) LanguageLabel() string {
	if a.MultiAudio {
		return "Multi Audio"
	}
	return strings.Join(a.Languages, "+")
}

// ParseSize returns the first size mentioned in name, in bytes, or 0
func ParseSize(name string) int64 {
	m := sizeValueRegex.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	switch strings.ToUpper(m[2]) {
	case "TB":
		value *= 1 << 40
	case "GB":
		value *= 1 << 30
	case "MB":
		value *= 1 << 20
	}
	return int64(value)
}

// FormatSize renders bytes as "4.2 GB" or "700 MB"
func FormatSize(bytes int64) string {
	switch {
	case bytes <= 0:
		return ""
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1<<30))
	default:
		return fmt.Sprintf("%.0f MB", float64(bytes)/(1<<20))
	}
}

// StreamLabel is the short name shown for a stream, e.g. "TorBox\n1080p WEB-DL"
func StreamLabel(provider, name string) string {
	attrs := Describe(name)
	label := provider + "\n" + attrs.Resolution
	if attrs.Source != "" {
		label += " " + attrs.Source
	}
	return label
}

// StreamDescription is the detail text shown under a stream: the (shortened)
// release name followed by languages, audio and size when known
func StreamDescription(name string, fileName string, sizeBytes int64) string {
	if name == "" {
		name = "Unknown"
	}
	if len(name) > 80 {
		name = name[:77] + "..."
	}

	attrs := Describe(name)
	if sizeBytes <= 0 {
		sizeBytes = attrs.SizeBytes
	}

	lines := []string{name}
	if fileName != "" && fileName != name {
		lines = append(lines, fileName)
	}

	var details []string
	if label := attrs.LanguageLabel(); label != "" {
		details = append(details, label)
	}
	if len(attrs.Audio) > 0 {
		details = append(details, strings.Join(attrs.Audio, " "))
	}
	if size := FormatSize(sizeBytes); size != "" {
		details = append(details, size)
	}
	if len(details) > 0 {
		lines = append(lines, strings.Join(details, " | "))
	}

	return strings.Join(lines, "\n")
}
