// Package sqlite provides an embedded SQLite overlay store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/listing-customizer/internal/overlay"
	"github.com/jonathan/listing-customizer/internal/types"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// OverlayStore persists overlays in a SQLite file.
type OverlayStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ overlay.Store = (*OverlayStore)(nil)

// Open creates (or opens) the overlay database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*OverlayStore, error) {
	// Connection-scoped pragmas go in the DSN so every pooled connection gets them.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("sqlite overlay store opened", "path", path)
	return &OverlayStore{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *OverlayStore) Close() error {
	return s.db.Close()
}

func (s *OverlayStore) Get(ctx context.Context, userID, productID string) (*types.OverlayRecord, error) {
	rec := &types.OverlayRecord{UserID: userID, ProductID: productID}
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT custom_title, sku, notes, custom_description, updated_at
		 FROM listing_overlays WHERE user_id = ? AND product_id = ?`,
		userID, productID,
	).Scan(&rec.CustomTitle, &rec.SKU, &rec.Notes, &rec.CustomDescription, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get overlay: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	rec.ExtraImages, err = s.images(ctx, s.db, userID, productID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Apply writes only the columns the patch touches.
func (s *OverlayStore) Apply(ctx context.Context, userID, productID string, patch types.OverlayPatch) (*types.OverlayRecord, error) {
	cols := patch.Columns()
	now := formatTime(s.now())

	names := []string{"user_id", "product_id", "updated_at"}
	args := []any{userID, productID, now}
	sets := []string{"updated_at = excluded.updated_at"}
	for _, c := range cols {
		names = append(names, c.Name)
		args = append(args, c.Value)
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c.Name, c.Name))
	}

	query := fmt.Sprintf(
		`INSERT INTO listing_overlays (%s) VALUES (%s)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET %s`,
		strings.Join(names, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "),
		strings.Join(sets, ", "),
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("apply overlay patch: %w", err)
	}

	rec, err := s.Get(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("overlay patched", "user_id", userID, "product_id", productID, "columns", len(cols))
	return rec, nil
}

func (s *OverlayStore) AddImage(ctx context.Context, userID, productID, path string) (*types.OverlayImage, error) {
	img := &types.OverlayImage{ID: uuid.NewString(), Path: path, UploadedAt: s.now().UTC()}
	uploaded := formatTime(img.UploadedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO listing_overlays (user_id, product_id, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET updated_at = excluded.updated_at`,
		userID, productID, uploaded,
	); err != nil {
		return nil, fmt.Errorf("ensure overlay: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO listing_overlay_images (id, user_id, product_id, image_path, uploaded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		img.ID, userID, productID, path, uploaded,
	); err != nil {
		return nil, fmt.Errorf("insert overlay image: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return img, nil
}

func (s *OverlayStore) RemoveImage(ctx context.Context, userID, productID, imageID string) (*types.OverlayImage, error) {
	img := &types.OverlayImage{ID: imageID}
	var uploaded string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM listing_overlay_images
		 WHERE id = ? AND user_id = ? AND product_id = ?
		 RETURNING image_path, uploaded_at`,
		imageID, userID, productID,
	).Scan(&img.Path, &uploaded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, overlay.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("remove overlay image: %w", err)
	}
	if img.UploadedAt, err = parseTime(uploaded); err != nil {
		return nil, fmt.Errorf("parse uploaded_at: %w", err)
	}
	return img, nil
}

func (s *OverlayStore) Delete(ctx context.Context, userID, productID string) ([]types.OverlayImage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	images, err := s.images(ctx, tx, userID, productID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM listing_overlay_images WHERE user_id = ? AND product_id = ?`,
		userID, productID,
	); err != nil {
		return nil, fmt.Errorf("delete overlay images: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM listing_overlays WHERE user_id = ? AND product_id = ?`,
		userID, productID,
	); err != nil {
		return nil, fmt.Errorf("delete overlay: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return images, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *OverlayStore) images(ctx context.Context, q querier, userID, productID string) ([]types.OverlayImage, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, image_path, uploaded_at FROM listing_overlay_images
		 WHERE user_id = ? AND product_id = ?
		 ORDER BY uploaded_at, rowid`,
		userID, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list overlay images: %w", err)
	}
	defer rows.Close()

	images := []types.OverlayImage{}
	for rows.Next() {
		var img types.OverlayImage
		var uploaded string
		if err := rows.Scan(&img.ID, &img.Path, &uploaded); err != nil {
			return nil, fmt.Errorf("scan overlay image: %w", err)
		}
		if img.UploadedAt, err = parseTime(uploaded); err != nil {
			return nil, fmt.Errorf("parse uploaded_at: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
