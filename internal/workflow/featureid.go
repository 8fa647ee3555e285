package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxSlugLength bounds the slug portion of a feature ID.
const maxSlugLength = 30

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateFeatureID derives the next "NNN-slug" feature ID from a
// description and the set of existing feature IDs. The counter is
// max(existing)+1, zero-padded to three digits.
func GenerateFeatureID(description string, existing []string) string {
	next := 1
	for _, id := range existing {
		if len(id) < 3 {
			continue
		}
		if n, err := strconv.Atoi(id[:3]); err == nil && n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%03d-%s", next, Slugify(description))
}

// Slugify lowercases a description, collapses non-alphanumerics to hyphens,
// truncates to maxSlugLength, and strips trailing hyphens.
func Slugify(description string) string {
	slug := strings.ToLower(description)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	slug = strings.TrimRight(slug, "-")
	if slug == "" {
		slug = "feature"
	}
	return slug
}
