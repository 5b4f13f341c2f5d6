// Package listing composes the republishable view of a listing from scraped
// data and a user's overlay. Everything here is pure and deterministic.
package listing

import (
	"regexp"
	"strings"

	"github.com/jonathan/listing-customizer/internal/extract"
	"github.com/jonathan/listing-customizer/internal/types"
)

// TitleLimit is the marketplace title length limit in characters.
const TitleLimit = 80

// Fixed lines of the composed listing text.
const (
	KeyFeaturesHeading = "✨ Key Features"
	BulletPrefix       = "⚫️ "
	DispatchNotice     = "📦 Fast Dispatch from UK   |   🚚 Tracked Delivery Included"
)

var bracketAnnotation = regexp.MustCompile(`\[[^\]]+\]`)

// Title80 trims s to at most TitleLimit characters without splitting a word.
func Title80(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= TitleLimit {
		return s
	}

	cut := string(r[:TitleLimit])
	if r[TitleLimit] == ' ' {
		return strings.TrimRight(cut, " ")
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		return strings.TrimRight(cut[:i], " ")
	}
	return cut
}

// ComposeText renders the listing description from the title, attributes and bullets.
func ComposeText(title string, attributes map[string]string, bullets []string) string {
	var lines []string
	lines = append(lines, title, "")

	brand := attributes[extract.AttrBrand]
	colour := attributes[extract.AttrColour]
	if brand != "" || colour != "" {
		if brand != "" {
			lines = append(lines, "Brand: "+brand)
		}
		if colour != "" {
			lines = append(lines, "Colour: "+colour)
		}
		lines = append(lines, "")
	}

	if len(bullets) > 0 {
		lines = append(lines, KeyFeaturesHeading, "")
		for _, b := range bullets {
			b = strings.TrimSpace(bracketAnnotation.ReplaceAllString(b, ""))
			lines = append(lines, BulletPrefix+b, "")
		}
	}

	lines = append(lines, DispatchNotice)
	return strings.Join(lines, "\n")
}

// ListingText renders the description for a scraped listing.
func ListingText(l *types.ExtractedListing) string {
	return ComposeText(l.Title, l.Attributes, l.Bullets)
}
