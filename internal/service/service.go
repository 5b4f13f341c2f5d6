// Package service runs the read path (normalize, cache, fetch, extract,
// compose) and the overlay maintenance operations on top of it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/listing-customizer/internal/cache"
	"github.com/jonathan/listing-customizer/internal/extract"
	"github.com/jonathan/listing-customizer/internal/fetch"
	"github.com/jonathan/listing-customizer/internal/listing"
	"github.com/jonathan/listing-customizer/internal/overlay"
	"github.com/jonathan/listing-customizer/internal/refid"
	"github.com/jonathan/listing-customizer/internal/storage"
	"github.com/jonathan/listing-customizer/internal/types"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyPatch is returned when an overlay update touches no field.
var ErrEmptyPatch = errors.New("overlay patch sets no fields")

// ErrMissingUser is returned by user-scoped operations called without a user id.
var ErrMissingUser = errors.New("user id is required")

// Fetcher obtains the raw product page for a URL. *fetch.Orchestrator implements it.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*fetch.FetchResult, error)
}

// Config holds the service's tunables.
type Config struct {
	BaseURL       string
	DomainMarkers []string
	TTL           time.Duration
	FailureTTL    time.Duration
}

// Deps are the collaborators the service is built from.
type Deps struct {
	Fetcher   Fetcher
	Extractor *extract.Extractor
	Cache     cache.Store
	Overlays  overlay.Store
	Files     storage.FileStore
}

// Service composes listings and maintains overlays.
type Service struct {
	normalizer *refid.Normalizer
	fetcher    Fetcher
	extractor  *extract.Extractor
	cache      cache.Store
	overlays   overlay.Store
	files      storage.FileStore
	logger     *slog.Logger

	baseURL    string
	ttl        time.Duration
	failureTTL time.Duration
	now        func() time.Time

	inflight singleflight.Group
}

// New creates a Service. Zero TTLs fall back to the cache defaults.
func New(cfg Config, deps Deps, logger *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = cache.DefaultTTL
	}
	if cfg.FailureTTL <= 0 {
		cfg.FailureTTL = cache.DefaultFailureTTL
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		normalizer: refid.NewNormalizer(cfg.DomainMarkers),
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		cache:      deps.Cache,
		overlays:   deps.Overlays,
		files:      deps.Files,
		logger:     logger,
		baseURL:    cfg.BaseURL,
		ttl:        cfg.TTL,
		failureTTL: cfg.FailureTTL,
		now:        time.Now,
	}
}

// Normalize canonicalizes a raw product reference.
func (s *Service) Normalize(rawRef string) (refid.ProductRef, error) {
	return s.normalizer.Normalize(rawRef)
}

// GetListing returns the composed listing for rawRef as seen by userID. An
// empty userID skips the overlay.
//
// When the source cannot be read, a placeholder listing is returned together
// with the *fetch.UpstreamUnavailableError or *fetch.TimeoutError.
func (s *Service) GetListing(ctx context.Context, rawRef, userID string) (*types.ComposedListing, error) {
	ref, err := s.normalizer.Normalize(rawRef)
	if err != nil {
		return nil, err
	}

	scraped, fromCache, fetchErr := s.scraped(ctx, ref.CanonicalID)
	if scraped == nil {
		return nil, fetchErr
	}

	var ov *types.OverlayRecord
	if userID != "" {
		ov, err = s.overlays.Get(ctx, userID, ref.CanonicalID)
		if err != nil {
			return nil, fmt.Errorf("failed to load overlay: %w", err)
		}
	}

	composed := listing.Compose(scraped, ov)
	composed.FromCache = fromCache
	return composed, fetchErr
}

// RawImages returns the scraped image URLs for rawRef, fetching on a miss.
func (s *Service) RawImages(ctx context.Context, rawRef string) ([]string, error) {
	ref, err := s.normalizer.Normalize(rawRef)
	if err != nil {
		return nil, err
	}
	scraped, _, err := s.scraped(ctx, ref.CanonicalID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, scraped.Images...), nil
}

// scraped returns the extracted listing for id from the cache, or fetches it.
// Concurrent misses for the same id share one fetch.
func (s *Service) scraped(ctx context.Context, id string) (*types.ExtractedListing, bool, error) {
	key := cache.Key(id)

	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	if entry != nil {
		s.logger.Debug("cache hit", "product_id", id)
		return entry.Listing, true, s.markerError(entry.Listing)
	}

	type outcome struct {
		listing   *types.ExtractedListing
		fromCache bool
		err       error
	}
	// The shared fetch must not die with whichever caller started it.
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := s.inflight.Do(key, func() (any, error) {
		// A flight that finished between our miss and now already stored it.
		if entry, err := s.cache.Get(fetchCtx, key); err == nil && entry != nil {
			return outcome{entry.Listing, true, s.markerError(entry.Listing)}, nil
		}
		l, err := s.fetchAndStore(fetchCtx, id, key)
		return outcome{listing: l, err: err}, nil
	})
	out := v.(outcome)
	return out.listing, out.fromCache, out.err
}

// fetchAndStore runs the tier escalation and writes exactly one cache entry
// for whatever it produced, failure markers included.
func (s *Service) fetchAndStore(ctx context.Context, id, key string) (*types.ExtractedListing, error) {
	sourceURL := refid.ProductURL(s.baseURL, id)
	result, fetchErr := s.fetcher.Fetch(ctx, sourceURL)

	var (
		l   *types.ExtractedListing
		ttl = s.ttl
	)
	switch {
	case fetchErr == nil:
		l = s.extractor.Extract(result.Content)
		l.TierUsed = result.TierUsed
		if result.Degraded() {
			l.Status = types.StatusDegraded
			s.logger.Warn("extraction degraded", "product_id", id, "tier", result.TierName)
		}
	default:
		if !isUpstreamFailure(fetchErr) {
			fetchErr = &fetch.UpstreamUnavailableError{
				URL:      sourceURL,
				Attempts: []fetch.Attempt{{Tier: "fetcher", Err: fetchErr}},
			}
		}
		l = types.PlaceholderListing(id, placeholderTitle(fetchErr))
		ttl = s.failureTTL
		s.logger.Warn("upstream fetch failed", "product_id", id, "error", fetchErr)
	}

	l.ProductID = id
	l.SourceURL = sourceURL
	l.ExtractedAt = s.now().UTC()

	if err := s.cache.Put(ctx, key, l, ttl); err != nil {
		return nil, fmt.Errorf("failed to write cache: %w", err)
	}
	s.logger.Info("listing cached", "product_id", id, "status", l.Status, "tier", l.TierUsed, "ttl", ttl)
	return l, fetchErr
}

func isUpstreamFailure(err error) bool {
	var unavailable *fetch.UpstreamUnavailableError
	var timeout *fetch.TimeoutError
	return errors.As(err, &unavailable) || errors.As(err, &timeout)
}

func placeholderTitle(err error) string {
	var timeout *fetch.TimeoutError
	if errors.As(err, &timeout) {
		return types.TitleFetchTimedOut
	}
	return types.TitleUnavailable
}

// markerError rebuilds the fetch error a cached failure marker stands for, so
// a cached failure is reported the same way as a fresh one.
func (s *Service) markerError(l *types.ExtractedListing) error {
	if l.Status != types.StatusUnavailable {
		return nil
	}
	if l.Title == types.TitleFetchTimedOut {
		return &fetch.TimeoutError{URL: l.SourceURL, Cause: context.DeadlineExceeded}
	}
	return &fetch.UpstreamUnavailableError{URL: l.SourceURL}
}
