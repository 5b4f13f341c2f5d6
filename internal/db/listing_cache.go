package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/listing-customizer/internal/cache"
	"github.com/jonathan/listing-customizer/internal/types"
)

// ListingCache is a cache.Store on the listing_cache table.
type ListingCache struct {
	db     *DB
	logger *slog.Logger
	now    cache.Clock
}

var _ cache.Store = (*ListingCache)(nil)

// NewListingCache creates a postgres-backed listing cache.
func NewListingCache(db *DB, logger *slog.Logger) *ListingCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingCache{db: db, logger: logger, now: time.Now}
}

// Get returns the fresh entry for key, or nil on a miss.
func (c *ListingCache) Get(ctx context.Context, key string) (*cache.Entry, error) {
	var (
		payload    []byte
		storedAt   time.Time
		ttlSeconds int64
	)
	err := c.db.pool.QueryRow(ctx,
		`SELECT listing, stored_at, ttl_seconds FROM listing_cache WHERE key = $1`,
		key,
	).Scan(&payload, &storedAt, &ttlSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	entry := &cache.Entry{Key: key, StoredAt: storedAt, TTL: time.Duration(ttlSeconds) * time.Second}
	if !entry.Fresh(c.now()) {
		return nil, nil
	}

	listing, err := cache.DecodeListing(payload)
	if err != nil {
		c.logger.Warn("discarding invalid cache entry", "key", key, "error", err)
		return nil, nil
	}
	entry.Listing = listing
	return entry, nil
}

// Put upserts the listing for key.
func (c *ListingCache) Put(ctx context.Context, key string, listing *types.ExtractedListing, ttl time.Duration) error {
	payload, err := cache.EncodeListing(listing)
	if err != nil {
		return err
	}
	_, err = c.db.pool.Exec(ctx,
		`INSERT INTO listing_cache (key, product_id, listing, stored_at, ttl_seconds)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO UPDATE SET
		   product_id = EXCLUDED.product_id,
		   listing = EXCLUDED.listing,
		   stored_at = EXCLUDED.stored_at,
		   ttl_seconds = EXCLUDED.ttl_seconds`,
		key, listing.ProductID, payload, c.now().UTC(), int64(ttl/time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to put cache entry %s: %w", listing.ProductID, err)
	}
	return nil
}

// Invalidate removes key.
func (c *ListingCache) Invalidate(ctx context.Context, key string) error {
	if _, err := c.db.pool.Exec(ctx, `DELETE FROM listing_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// ClearAll removes every cached listing.
func (c *ListingCache) ClearAll(ctx context.Context) error {
	if _, err := c.db.pool.Exec(ctx, `DELETE FROM listing_cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// PurgeExpired deletes entries whose TTL has elapsed and returns how many were removed.
func (c *ListingCache) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := c.db.pool.Exec(ctx,
		`DELETE FROM listing_cache WHERE stored_at + make_interval(secs => ttl_seconds) <= $1`,
		c.now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
