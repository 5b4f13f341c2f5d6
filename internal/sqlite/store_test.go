package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/listing-customizer/internal/overlay"
	"github.com/jonathan/listing-customizer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *OverlayStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "overlays.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestOpen_WALMode(t *testing.T) {
	s := newTestStore(t)
	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOverlayStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Get(context.Background(), "u1", "B0ABCDEFGH")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestOverlayStore_ApplyIsColumnScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Apply(ctx, "u1", "B0ABCDEFGH", types.OverlayPatch{SKU: strPtr("SKU-1")})
	require.NoError(t, err)
	rec, err := s.Apply(ctx, "u1", "B0ABCDEFGH", types.OverlayPatch{Notes: strPtr("check stock")})
	require.NoError(t, err)

	assert.Equal(t, "SKU-1", rec.SKU)
	assert.Equal(t, "check stock", rec.Notes)
	assert.Empty(t, rec.CustomTitle)
	assert.Empty(t, rec.ExtraImages)
	assert.False(t, rec.UpdatedAt.IsZero())

	rec, err = s.Apply(ctx, "u1", "B0ABCDEFGH", types.OverlayPatch{
		CustomTitle:       strPtr("My title"),
		CustomDescription: strPtr("Body"),
		SKU:               strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "My title", rec.CustomTitle)
	assert.Equal(t, "Body", rec.CustomDescription)
	assert.Empty(t, rec.SKU)
	assert.Equal(t, "check stock", rec.Notes)
}

func TestOverlayStore_ConcurrentDistinctFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	patches := []types.OverlayPatch{
		{SKU: strPtr("SKU-9")},
		{Notes: strPtr("fragile")},
		{CustomTitle: strPtr("Title")},
	}
	var wg sync.WaitGroup
	for _, p := range patches {
		wg.Add(1)
		go func(p types.OverlayPatch) {
			defer wg.Done()
			_, err := s.Apply(ctx, "u1", "B0ABCDEFGH", p)
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	rec, err := s.Get(ctx, "u1", "B0ABCDEFGH")
	require.NoError(t, err)
	assert.Equal(t, "SKU-9", rec.SKU)
	assert.Equal(t, "fragile", rec.Notes)
	assert.Equal(t, "Title", rec.CustomTitle)
}

func TestOverlayStore_Images(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddImage(ctx, "u1", "B0ABCDEFGH", "/uploads/u1/a.jpg")
	require.NoError(t, err)
	b, err := s.AddImage(ctx, "u1", "B0ABCDEFGH", "/uploads/u1/b.jpg")
	require.NoError(t, err)

	rec, err := s.Get(ctx, "u1", "B0ABCDEFGH")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.ExtraImages, 2)
	assert.Equal(t, a.ID, rec.ExtraImages[0].ID)
	assert.Equal(t, b.ID, rec.ExtraImages[1].ID)

	removed, err := s.RemoveImage(ctx, "u1", "B0ABCDEFGH", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/u1/a.jpg", removed.Path)

	_, err = s.RemoveImage(ctx, "u1", "B0ABCDEFGH", a.ID)
	assert.ErrorIs(t, err, overlay.ErrImageNotFound)
	_, err = s.RemoveImage(ctx, "u2", "B0ABCDEFGH", b.ID)
	assert.ErrorIs(t, err, overlay.ErrImageNotFound)
}

func TestOverlayStore_ImagesOrderWithinSecond(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)
	stamps := []time.Time{
		base.Add(100 * time.Millisecond),
		base.Add(123456700 * time.Nanosecond),
		base.Add(900 * time.Millisecond),
	}
	var ids []string
	for i, ts := range stamps {
		s.now = func() time.Time { return ts }
		img, err := s.AddImage(ctx, "u1", "B0ABCDEFGH", fmt.Sprintf("/uploads/u1/%d.jpg", i))
		require.NoError(t, err)
		ids = append(ids, img.ID)
	}

	rec, err := s.Get(ctx, "u1", "B0ABCDEFGH")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.ExtraImages, len(stamps))
	for i, img := range rec.ExtraImages {
		assert.Equal(t, ids[i], img.ID)
		assert.True(t, stamps[i].Equal(img.UploadedAt))
	}
}

func TestFormatTime_FixedWidth(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{name: "whole second", in: time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC), want: "2024-03-01T12:00:05.000000000Z"},
		{name: "trailing zeros kept", in: time.Date(2024, 3, 1, 12, 0, 5, 100000000, time.UTC), want: "2024-03-01T12:00:05.100000000Z"},
		{name: "converted to utc", in: time.Date(2024, 3, 1, 13, 0, 5, 1, time.FixedZone("CET", 3600)), want: "2024-03-01T12:00:05.000000001Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTime(tt.in)
			assert.Equal(t, tt.want, got)
			parsed, err := parseTime(got)
			require.NoError(t, err)
			assert.True(t, tt.in.Equal(parsed))
		})
	}
}

func TestOverlayStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Apply(ctx, "u1", "B0ABCDEFGH", types.OverlayPatch{SKU: strPtr("S")})
	require.NoError(t, err)
	_, err = s.AddImage(ctx, "u1", "B0ABCDEFGH", "/uploads/u1/a.jpg")
	require.NoError(t, err)
	_, err = s.Apply(ctx, "u2", "B0ABCDEFGH", types.OverlayPatch{SKU: strPtr("other")})
	require.NoError(t, err)

	images, err := s.Delete(ctx, "u1", "B0ABCDEFGH")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "/uploads/u1/a.jpg", images[0].Path)

	rec, err := s.Get(ctx, "u1", "B0ABCDEFGH")
	require.NoError(t, err)
	assert.Nil(t, rec)

	other, err := s.Get(ctx, "u2", "B0ABCDEFGH")
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, "other", other.SKU)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM listing_overlay_images`).Scan(&count))
	assert.Equal(t, 0, count)
}
