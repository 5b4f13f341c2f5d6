// Package images canonicalizes product image URLs collected from a page.
package images

import (
	"regexp"
	"strings"
)

// MaxImages is the upper bound on scraped images kept per listing.
const MaxImages = 12

// sizeToken matches a CDN size/variant token inserted before the extension,
// e.g. "._AC_SX342_." in "foo._AC_SX342_.jpg".
var sizeToken = regexp.MustCompile(`\._[^./]+\.`)

var allowedExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Normalize strips query strings and size tokens, drops non-image candidates,
// removes duplicates preserving first-seen order, and caps the result at MaxImages.
func Normalize(candidates []string) []string {
	out := make([]string, 0, MaxImages)
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		u := Canonical(c)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == MaxImages {
			break
		}
	}
	return out
}

// Canonical returns the full-resolution canonical form of a single image URL,
// or "" when the candidate is not an allowed image.
func Canonical(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.ReplaceAll(u, `\u0026`, "&")
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if u == "" {
		return ""
	}
	// Stacked tokens ("._AC_._SX342_.") collapse one at a time.
	for sizeToken.MatchString(u) {
		u = sizeToken.ReplaceAllString(u, ".")
	}
	if !HasAllowedExtension(u) {
		return ""
	}
	return u
}

// HasAllowedExtension reports whether u ends in a supported image extension.
func HasAllowedExtension(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
