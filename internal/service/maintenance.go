package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/listing-customizer/internal/cache"
	"github.com/jonathan/listing-customizer/internal/types"
)

// InvalidateCache drops the cached extraction for one product.
func (s *Service) InvalidateCache(ctx context.Context, rawRef string) error {
	ref, err := s.normalizer.Normalize(rawRef)
	if err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, cache.Key(ref.CanonicalID)); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	s.logger.Info("cache entry invalidated", "product_id", ref.CanonicalID)
	return nil
}

// ClearAllCache drops every cached extraction.
func (s *Service) ClearAllCache(ctx context.Context) error {
	if err := s.cache.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	s.logger.Info("cache cleared")
	return nil
}

// UpdateOverlay applies a field-scoped patch to the user's overlay.
func (s *Service) UpdateOverlay(ctx context.Context, userID, rawRef string, patch types.OverlayPatch) (*types.OverlayRecord, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	ref, err := s.normalizer.Normalize(rawRef)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.overlays.Apply(ctx, userID, ref.CanonicalID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update overlay: %w", err)
	}
	return rec, nil
}

// AddOverlayImage stores an uploaded file and appends it to the overlay.
func (s *Service) AddOverlayImage(ctx context.Context, userID, rawRef, name string, data []byte) (*types.OverlayImage, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	ref, err := s.normalizer.Normalize(rawRef)
	if err != nil {
		return nil, err
	}

	fileRef, err := s.files.StoreFile(ctx, userID, name, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	img, err := s.overlays.AddImage(ctx, userID, ref.CanonicalID, fileRef)
	if err != nil {
		if delErr := s.files.DeleteFile(ctx, fileRef); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "ref", fileRef, "error", delErr)
		}
		return nil, fmt.Errorf("failed to add overlay image: %w", err)
	}
	return img, nil
}

// RemoveOverlayImage deletes one overlay image row and its backing file.
func (s *Service) RemoveOverlayImage(ctx context.Context, userID, rawRef, imageID string) error {
	if userID == "" {
		return ErrMissingUser
	}
	ref, err := s.normalizer.Normalize(rawRef)
	if err != nil {
		return err
	}

	img, err := s.overlays.RemoveImage(ctx, userID, ref.CanonicalID, imageID)
	if err != nil {
		return fmt.Errorf("failed to remove overlay image: %w", err)
	}
	if err := s.files.DeleteFile(ctx, img.Path); err != nil {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// DeleteOverlay removes the user's overlay and every file it referenced.
// Subsequent reads show the pure scraped listing.
func (s *Service) DeleteOverlay(ctx context.Context, userID, rawRef string) error {
	if userID == "" {
		return ErrMissingUser
	}
	ref, err := s.normalizer.Normalize(rawRef)
	if err != nil {
		return err
	}

	images, err := s.overlays.Delete(ctx, userID, ref.CanonicalID)
	if err != nil {
		return fmt.Errorf("failed to delete overlay: %w", err)
	}

	var errs []error
	for _, img := range images {
		if err := s.files.DeleteFile(ctx, img.Path); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", img.Path, err))
		}
	}
	s.logger.Info("overlay deleted", "user_id", userID, "product_id", ref.CanonicalID, "images", len(images))
	return errors.Join(errs...)
}
