// Package cache stores extracted listings keyed by canonical product id.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/listing-customizer/internal/schemas"
	"github.com/jonathan/listing-customizer/internal/types"
	"golang.org/x/crypto/blake2b"
)

const (
	// DefaultTTL is how long a successful extraction stays fresh.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultFailureTTL is how long an unavailable or timed-out marker is kept.
	DefaultFailureTTL = 15 * time.Minute
)

// Entry is one cached extraction.
type Entry struct {
	Key      string
	Listing  *types.ExtractedListing
	StoredAt time.Time
	TTL      time.Duration
}

// Fresh reports whether the entry is still within its TTL at now.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// Store is a TTL-bounded listing cache. Get returns (nil, nil) on a miss or
// an expired entry. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, listing *types.ExtractedListing, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
}

// Key derives the storage key for a canonical product id.
func Key(productID string) string {
	sum := blake2b.Sum256([]byte(productID))
	return hex.EncodeToString(sum[:])
}

// Clock returns the current time. Stores take one so expiry can be tested.
type Clock func() time.Time

// EncodeListing serializes a listing for a persistent backend.
func EncodeListing(l *types.ExtractedListing) ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal listing: %w", err)
	}
	return data, nil
}

// DecodeListing validates and deserializes a stored listing payload.
func DecodeListing(data []byte) (*types.ExtractedListing, error) {
	if err := schemas.ValidateListing(data); err != nil {
		return nil, fmt.Errorf("cached listing failed validation: %w", err)
	}
	var l types.ExtractedListing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing: %w", err)
	}
	return &l, nil
}
