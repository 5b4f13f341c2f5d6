package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/listing-customizer/internal/overlay"
	"github.com/jonathan/listing-customizer/internal/types"
)

// OverlayStore is an overlay.Store on the listing_overlays tables.
type OverlayStore struct {
	db *DB
}

var _ overlay.Store = (*OverlayStore)(nil)

// NewOverlayStore creates a postgres-backed overlay store.
func NewOverlayStore(db *DB) *OverlayStore {
	return &OverlayStore{db: db}
}

// Get returns the overlay for (userID, productID), or nil when none exists.
func (s *OverlayStore) Get(ctx context.Context, userID, productID string) (*types.OverlayRecord, error) {
	rec := &types.OverlayRecord{UserID: userID, ProductID: productID}
	err := s.db.pool.QueryRow(ctx,
		`SELECT custom_title, sku, notes, custom_description, updated_at
		 FROM listing_overlays WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	).Scan(&rec.CustomTitle, &rec.SKU, &rec.Notes, &rec.CustomDescription, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get overlay: %w", err)
	}

	rec.ExtraImages, err = s.listImages(ctx, s.db.pool, userID, productID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// buildPatchUpsert renders a column-scoped upsert: only touched columns are
// inserted and updated, so concurrent edits to other columns survive.
func buildPatchUpsert(userID, productID string, patch types.OverlayPatch) (string, []any) {
	cols := patch.Columns()
	names := []string{"user_id", "product_id"}
	placeholders := []string{"$1", "$2"}
	args := []any{userID, productID}
	sets := make([]string, 0, len(cols)+1)

	for i, c := range cols {
		names = append(names, c.Name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+3))
		args = append(args, c.Value)
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c.Name, c.Name))
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(
		`INSERT INTO listing_overlays (%s) VALUES (%s)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET %s`,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(sets, ", "),
	)
	return query, args
}

// Apply upserts the touched columns and returns the resulting overlay.
func (s *OverlayStore) Apply(ctx context.Context, userID, productID string, patch types.OverlayPatch) (*types.OverlayRecord, error) {
	query, args := buildPatchUpsert(userID, productID, patch)
	if _, err := s.db.pool.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to apply overlay patch: %w", err)
	}
	return s.Get(ctx, userID, productID)
}

// AddImage records an uploaded image, creating the overlay row if needed.
func (s *OverlayStore) AddImage(ctx context.Context, userID, productID, path string) (*types.OverlayImage, error) {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO listing_overlays (user_id, product_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET updated_at = NOW()`,
		userID, productID,
	); err != nil {
		return nil, fmt.Errorf("failed to ensure overlay: %w", err)
	}

	img := &types.OverlayImage{Path: path}
	var id uuid.UUID
	if err := tx.QueryRow(ctx,
		`INSERT INTO listing_overlay_images (id, user_id, product_id, image_path)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, uploaded_at`,
		uuid.New(), userID, productID, path,
	).Scan(&id, &img.UploadedAt); err != nil {
		return nil, fmt.Errorf("failed to insert overlay image: %w", err)
	}
	img.ID = id.String()

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit overlay image: %w", err)
	}
	return img, nil
}

// RemoveImage deletes one image row and returns it.
func (s *OverlayStore) RemoveImage(ctx context.Context, userID, productID, imageID string) (*types.OverlayImage, error) {
	id, err := uuid.Parse(imageID)
	if err != nil {
		return nil, overlay.ErrImageNotFound
	}

	img := &types.OverlayImage{ID: imageID}
	err = s.db.pool.QueryRow(ctx,
		`DELETE FROM listing_overlay_images
		 WHERE id = $1 AND user_id = $2 AND product_id = $3
		 RETURNING image_path, uploaded_at`,
		id, userID, productID,
	).Scan(&img.Path, &img.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, overlay.ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to remove overlay image: %w", err)
	}
	return img, nil
}

// Delete removes the overlay and its images, returning the image rows.
func (s *OverlayStore) Delete(ctx context.Context, userID, productID string) ([]types.OverlayImage, error) {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	images, err := s.listImages(ctx, tx, userID, productID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM listing_overlay_images WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	); err != nil {
		return nil, fmt.Errorf("failed to delete overlay images: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM listing_overlays WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	); err != nil {
		return nil, fmt.Errorf("failed to delete overlay: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit overlay delete: %w", err)
	}
	return images, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *OverlayStore) listImages(ctx context.Context, q queryer, userID, productID string) ([]types.OverlayImage, error) {
	rows, err := q.Query(ctx,
		`SELECT id, image_path, uploaded_at FROM listing_overlay_images
		 WHERE user_id = $1 AND product_id = $2
		 ORDER BY uploaded_at, id`,
		userID, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list overlay images: %w", err)
	}
	defer rows.Close()

	images := []types.OverlayImage{}
	for rows.Next() {
		var img types.OverlayImage
		var id uuid.UUID
		if err := rows.Scan(&id, &img.Path, &img.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan overlay image: %w", err)
		}
		img.ID = id.String()
		images = append(images, img)
	}
	return images, rows.Err()
}
