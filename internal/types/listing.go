// Package types provides type definitions for structured data used throughout the listing-customizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// ListingStatus records how much of the source page could be trusted.
type ListingStatus string

const (
	// StatusOK means a tier's validity probe passed.
	StatusOK ListingStatus = "ok"
	// StatusDegraded means content was obtained but never validated.
	StatusDegraded ListingStatus = "degraded"
	// StatusUnavailable means no tier produced any content.
	StatusUnavailable ListingStatus = "unavailable"
)

// Placeholder titles used when a field or the whole page could not be read.
const (
	NoTitleFound       = "No title found"
	TitleUnavailable   = "Product page unavailable"
	TitleFetchTimedOut = "Timed out fetching product"
)

// ExtractedListing is the immutable result of scraping one product page.
// It is regenerated wholesale on cache miss and never partially mutated.
type ExtractedListing struct {
	ProductID   string            `json:"product_id"`
	Title       string            `json:"title"`
	Images      []string          `json:"images"`
	Bullets     []string          `json:"bullets"`
	Attributes  map[string]string `json:"attributes"`
	Price       string            `json:"price,omitempty"`
	SourceURL   string            `json:"source_url,omitempty"`
	TierUsed    int               `json:"tier_used,omitempty"`
	Status      ListingStatus     `json:"status"`
	ExtractedAt time.Time         `json:"extracted_at"`
}

// Attribute returns the value stored under a normalized attribute key.
func (l *ExtractedListing) Attribute(key string) string {
	if l == nil || l.Attributes == nil {
		return ""
	}
	return l.Attributes[key]
}

// PlaceholderListing builds the listing returned when the source could not be read at all.
func PlaceholderListing(productID, title string) *ExtractedListing {
	return &ExtractedListing{
		ProductID:  productID,
		Title:      title,
		Images:     []string{},
		Bullets:    []string{},
		Attributes: map[string]string{},
		Status:     StatusUnavailable,
	}
}

// ComposedListing is the read-side view of a listing: scraped data merged with
// the requesting user's overlay. It is derived on every read and never persisted.
type ComposedListing struct {
	ProductID     string            `json:"product_id"`
	Title80       string            `json:"title80"`
	FullTitle     string            `json:"full_title"`
	Images        []string          `json:"images"`
	ScrapedImages []string          `json:"scraped_images"`
	ListingText   string            `json:"listing_text"`
	SKU           string            `json:"sku,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Price         string            `json:"price,omitempty"`
	Bullets       []string          `json:"bullets"`
	Attributes    map[string]string `json:"attributes"`
	Status        ListingStatus     `json:"status"`
	TierUsed      int               `json:"tier_used,omitempty"`
	FromCache     bool              `json:"from_cache"`
	HasOverlay    bool              `json:"has_overlay"`
}
