// Package overlay stores per-user annotations layered over scraped listings.
package overlay

import (
	"context"
	"errors"

	"github.com/jonathan/listing-customizer/internal/types"
)

// ErrImageNotFound is returned when removing an image the overlay does not hold.
var ErrImageNotFound = errors.New("overlay image not found")

// Store persists overlays keyed by (userID, productID).
//
// Apply is column-scoped: only the fields set on the patch are written, so
// two concurrent edits to different fields never overwrite each other.
type Store interface {
	// Get returns the overlay, or nil when the user has none for the product.
	Get(ctx context.Context, userID, productID string) (*types.OverlayRecord, error)
	// Apply upserts the touched fields and returns the resulting overlay.
	Apply(ctx context.Context, userID, productID string, patch types.OverlayPatch) (*types.OverlayRecord, error)
	// AddImage appends an uploaded image reference.
	AddImage(ctx context.Context, userID, productID, path string) (*types.OverlayImage, error)
	// RemoveImage deletes one image and returns it so its file can be removed.
	RemoveImage(ctx context.Context, userID, productID, imageID string) (*types.OverlayImage, error)
	// Delete removes the whole overlay and returns its images.
	Delete(ctx context.Context, userID, productID string) ([]types.OverlayImage, error)
}
