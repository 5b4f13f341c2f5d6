package listing

import (
	"testing"
	"time"

	"github.com/jonathan/listing-customizer/internal/types"
	"github.com/stretchr/testify/assert"
)

func scrapedMouse() *types.ExtractedListing {
	return &types.ExtractedListing{
		ProductID:  "B0ABCDEFGH",
		Title:      "Wireless Mouse Black",
		Images:     []string{"A", "B"},
		Bullets:    []string{"Silent"},
		Attributes: map[string]string{"brand": "Acme"},
		Price:      "£9.99",
		Status:     types.StatusOK,
		TierUsed:   1,
	}
}

func TestCompose_NoOverlay(t *testing.T) {
	scraped := scrapedMouse()
	got := Compose(scraped, nil)

	assert.Equal(t, "Wireless Mouse Black", got.Title80)
	assert.Equal(t, "Wireless Mouse Black", got.FullTitle)
	assert.Equal(t, []string{"A", "B"}, got.Images)
	assert.Equal(t, ListingText(scraped), got.ListingText)
	assert.False(t, got.HasOverlay)
	assert.Equal(t, "£9.99", got.Price)
}

func TestCompose_OverlayPrecedence(t *testing.T) {
	overlay := &types.OverlayRecord{
		UserID:            "u1",
		ProductID:         "B0ABCDEFGH",
		CustomTitle:       "Mouse – Black Ed.",
		CustomDescription: "Hand written",
		SKU:               "SKU-1",
		Notes:             "restock",
	}

	got := Compose(scrapedMouse(), overlay)
	assert.Equal(t, "Mouse – Black Ed.", got.Title80)
	assert.Equal(t, "Wireless Mouse Black", got.FullTitle)
	assert.Equal(t, "Hand written", got.ListingText)
	assert.Equal(t, "SKU-1", got.SKU)
	assert.Equal(t, "restock", got.Notes)
	assert.True(t, got.HasOverlay)
}

func TestCompose_EmptyOverlayFieldsFallBack(t *testing.T) {
	scraped := scrapedMouse()
	got := Compose(scraped, &types.OverlayRecord{SKU: "X"})

	assert.Equal(t, Title80(scraped.Title), got.Title80)
	assert.Equal(t, ListingText(scraped), got.ListingText)
	assert.Equal(t, "X", got.SKU)
}

func TestCompose_OverlayImagesExtend(t *testing.T) {
	scraped := scrapedMouse()
	overlay := &types.OverlayRecord{
		ExtraImages: []types.OverlayImage{{ID: "1", Path: "C", UploadedAt: time.Now()}},
	}

	got := Compose(scraped, overlay)
	assert.Equal(t, []string{"A", "B", "C"}, got.Images)
	assert.Equal(t, []string{"A", "B"}, got.ScrapedImages)
	assert.Equal(t, []string{"A", "B"}, scraped.Images, "scraped listing must not be mutated")
}

func TestCompose_OverlayImagesNotCapped(t *testing.T) {
	scraped := scrapedMouse()
	scraped.Images = make([]string, 12)
	overlay := &types.OverlayRecord{}
	for i := 0; i < 5; i++ {
		overlay.ExtraImages = append(overlay.ExtraImages, types.OverlayImage{Path: "extra"})
	}

	got := Compose(scraped, overlay)
	assert.Len(t, got.Images, 17)
}
