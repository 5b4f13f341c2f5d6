// Package refid turns loosely-specified product references (marketplace URLs or
// bare product codes) into canonical product ids.
package refid

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultDomainMarkers are host fragments that identify a marketplace URL even
// when the input has no scheme.
var DefaultDomainMarkers = []string{"amazon."}

// DefaultBaseURL is the marketplace root used to build canonical product URLs.
const DefaultBaseURL = "https://www.amazon.co.uk"

var (
	// codePattern is the strict shape of a canonical product code.
	codePattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

	// pathPattern finds a product code following one of the known path markers.
	// The code must be terminated by a separator or the end of the path.
	pathPattern = regexp.MustCompile(`(?i)/(?:dp|gp/product|gp/aw/d|product|exec/obidos/asin|o/asin)/([a-z0-9]{10})(?:[/?#]|$)`)
)

// ProductRef pairs the caller's raw input with its canonical product id.
type ProductRef struct {
	RawInput    string `json:"raw_input"`
	CanonicalID string `json:"canonical_id"`
}

// InvalidReferenceError is returned when no product code can be derived from the input.
type InvalidReferenceError struct {
	Input   string
	Message string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid product reference %q: %s", e.Input, e.Message)
}

// Normalizer canonicalizes product references.
type Normalizer struct {
	markers []string
}

// NewNormalizer creates a normalizer. Nil or empty markers use DefaultDomainMarkers.
func NewNormalizer(markers []string) *Normalizer {
	if len(markers) == 0 {
		markers = DefaultDomainMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	return &Normalizer{markers: lowered}
}

// Normalize derives the canonical product id using the default domain markers.
func Normalize(raw string) (ProductRef, error) {
	return NewNormalizer(nil).Normalize(raw)
}

// Normalize derives the canonical product id for raw.
func (n *Normalizer) Normalize(raw string) (ProductRef, error) {
	ref := ProductRef{RawInput: raw}
	input := strings.TrimSpace(raw)
	if input == "" {
		return ref, &InvalidReferenceError{Input: raw, Message: "empty input"}
	}

	if n.looksLikeURL(input) {
		id, err := codeFromURL(input)
		if err != nil {
			return ref, &InvalidReferenceError{Input: raw, Message: err.Error()}
		}
		ref.CanonicalID = id
		return ref, nil
	}

	code := strings.ToUpper(input)
	if !codePattern.MatchString(code) {
		return ref, &InvalidReferenceError{Input: raw, Message: "not a 10-character alphanumeric product code"}
	}
	ref.CanonicalID = code
	return ref, nil
}

func (n *Normalizer) looksLikeURL(input string) bool {
	if strings.Contains(input, "://") {
		return true
	}
	lower := strings.ToLower(input)
	for _, m := range n.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func codeFromURL(input string) (string, error) {
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}
	parsed, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("unparseable URL: %v", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL has no host")
	}

	m := pathPattern.FindStringSubmatch(parsed.EscapedPath())
	if m == nil {
		return "", fmt.Errorf("no product path segment in URL")
	}
	return strings.ToUpper(m[1]), nil
}

// IsCanonical reports whether id already has the canonical code shape.
func IsCanonical(id string) bool {
	return codePattern.MatchString(id)
}

// ProductURL builds the canonical product page URL for id under base.
func ProductURL(base, id string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/dp/" + id
}
