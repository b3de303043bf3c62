package utils

import (
	"regexp"
	"sort"
	"strings"
)

var uhdRegex = regexp.MustCompile(`(?i)\b(2160p|4k|uhd)\b`)

// QualityRank maps a quality label (or a full release name) onto a total order:
// 2160p/4K=5, 1080p=4, 720p=3, 480p=2, CAM/HDTS/PreDVD=1, anything else 0.
func QualityRank(label string) int {
	lower := strings.ToLower(label)

	switch {
	case uhdRegex.MatchString(lower):
		return 5
	case strings.Contains(lower, "1080p"):
		return 4
	case strings.Contains(lower, "720p"):
		return 3
	case strings.Contains(lower, "480p"):
		return 2
	case strings.Contains(lower, "cam"),
		strings.Contains(lower, "hdts"),
		strings.Contains(lower, "predvd"):
		return 1
	default:
		return 0
	}
}

// SortByQuality orders items by descending quality rank.
// Items of equal rank keep their input order.
func SortByQuality[T any](items []T, label func(T) string) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		return QualityRank(label(sorted[i])) > QualityRank(label(sorted[j]))
	})

	return sorted
}
