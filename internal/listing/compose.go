package listing

import "github.com/jonathan/listing-customizer/internal/types"

// Compose merges a scraped listing with an optional overlay.
// Non-empty overlay title and description win; overlay images are appended
// after the scraped ones and never replace them.
func Compose(scraped *types.ExtractedListing, overlay *types.OverlayRecord) *types.ComposedListing {
	out := &types.ComposedListing{
		ProductID:     scraped.ProductID,
		Title80:       Title80(scraped.Title),
		FullTitle:     scraped.Title,
		ScrapedImages: append([]string{}, scraped.Images...),
		ListingText:   ListingText(scraped),
		Price:         scraped.Price,
		Bullets:       append([]string{}, scraped.Bullets...),
		Attributes:    copyAttributes(scraped.Attributes),
		Status:        scraped.Status,
		TierUsed:      scraped.TierUsed,
	}
	out.Images = append([]string{}, scraped.Images...)

	if overlay == nil {
		return out
	}

	out.HasOverlay = true
	if overlay.CustomTitle != "" {
		out.Title80 = overlay.CustomTitle
	}
	if overlay.CustomDescription != "" {
		out.ListingText = overlay.CustomDescription
	}
	out.SKU = overlay.SKU
	out.Notes = overlay.Notes
	for _, img := range overlay.ExtraImages {
		out.Images = append(out.Images, img.Path)
	}
	return out
}

func copyAttributes(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
