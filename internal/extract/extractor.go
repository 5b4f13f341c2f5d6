package extract

import (
	"strings"

	"github.com/jonathan/listing-customizer/internal/images"
	"github.com/jonathan/listing-customizer/internal/types"
)

// MaxBullets is the upper bound on feature bullets kept per listing.
const MaxBullets = 10

// DefaultBulletBlocklist holds interactive and fit-hint phrases that are not
// product features.
var DefaultBulletBlocklist = []string{
	"Click to",
	"This fits your",
	"Make sure this fits",
	"See more product details",
}

// Extractor runs the configured strategy lists over a page.
// Strategy lists can be reordered or replaced as source markup drifts.
type Extractor struct {
	Title      []TitleStrategy
	Images     []ImageStrategy
	Bullets    []BulletStrategy
	Attributes []AttributeStrategy
	Price      []PriceStrategy
	Blocklist  []string
}

// New creates an extractor with the default strategies.
func New() *Extractor {
	return &Extractor{
		Title:      DefaultTitleStrategies(),
		Images:     DefaultImageStrategies(),
		Bullets:    DefaultBulletStrategies(),
		Attributes: DefaultAttributeStrategies(),
		Price:      DefaultPriceStrategies(),
		Blocklist:  DefaultBulletBlocklist,
	}
}

// Extract reads every field from content. It never fails: missing fields fall
// back to placeholders and empty collections. The result depends only on content.
func (e *Extractor) Extract(content string) *types.ExtractedListing {
	p := NewPage(content)
	return &types.ExtractedListing{
		Title:      e.ExtractTitle(p),
		Images:     images.Normalize(e.ImageCandidates(p)),
		Bullets:    e.ExtractBullets(p),
		Attributes: e.ExtractAttributes(p),
		Price:      e.ExtractPrice(p),
		Status:     types.StatusOK,
	}
}

// ExtractTitle returns the first non-empty title, or the placeholder.
func (e *Extractor) ExtractTitle(p *Page) string {
	for _, s := range e.Title {
		if t := s.Extract(p); t != "" {
			return t
		}
	}
	return types.NoTitleFound
}

// ImageCandidates returns raw image URLs from every strategy, in strategy order.
func (e *Extractor) ImageCandidates(p *Page) []string {
	var out []string
	for _, s := range e.Images {
		out = append(out, s.Extract(p)...)
	}
	return out
}

// ExtractBullets returns filtered bullets from the first container that has any.
func (e *Extractor) ExtractBullets(p *Page) []string {
	out := make([]string, 0, MaxBullets)
	for _, s := range e.Bullets {
		for _, b := range s.Extract(p) {
			if e.blocked(b) {
				continue
			}
			out = append(out, b)
			if len(out) == MaxBullets {
				return out
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return out
}

func (e *Extractor) blocked(text string) bool {
	for _, phrase := range e.Blocklist {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// ExtractAttributes merges rows from every attribute strategy into a normalized map.
func (e *Extractor) ExtractAttributes(p *Page) map[string]string {
	var rows []KeyValue
	for _, s := range e.Attributes {
		rows = append(rows, s.Extract(p)...)
	}
	return buildAttributes(rows)
}

// ExtractPrice returns the first price any strategy finds, or "".
func (e *Extractor) ExtractPrice(p *Page) string {
	for _, s := range e.Price {
		if v := s.Extract(p); v != "" {
			return v
		}
	}
	return ""
}
