package service

import (
	"context"

	"github.com/jonathan/listing-customizer/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultWarmConcurrency bounds parallel fetches during a bulk warm.
const DefaultWarmConcurrency = 4

// WarmResult reports the outcome for one reference.
type WarmResult struct {
	Ref       string              `json:"ref"`
	ProductID string              `json:"product_id,omitempty"`
	Status    types.ListingStatus `json:"status,omitempty"`
	FromCache bool                `json:"from_cache"`
	Err       error               `json:"-"`
}

// Warm loads every reference into the cache. Failures are reported per
// reference; the returned error is only set when ctx is cancelled.
func (s *Service) Warm(ctx context.Context, refs []string, concurrency int) ([]WarmResult, error) {
	if concurrency <= 0 {
		concurrency = DefaultWarmConcurrency
	}
	results := make([]WarmResult, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, raw := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := WarmResult{Ref: raw}
			ref, err := s.normalizer.Normalize(raw)
			if err != nil {
				res.Err = err
				results[i] = res
				return nil
			}
			res.ProductID = ref.CanonicalID

			l, fromCache, err := s.scraped(gctx, ref.CanonicalID)
			res.Err = err
			res.FromCache = fromCache
			if l != nil {
				res.Status = l.Status
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	s.logger.Info("cache warm finished", "refs", len(refs))
	return results, nil
}
