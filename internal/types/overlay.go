package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// OverlayImage is one user-uploaded image attached to an overlay.
type OverlayImage struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// OverlayRecord holds a user's mutable annotations for one product.
// Empty strings mean "not set".
type OverlayRecord struct {
	UserID            string         `json:"user_id"`
	ProductID         string         `json:"product_id"`
	CustomTitle       string         `json:"custom_title,omitempty"`
	SKU               string         `json:"sku,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	CustomDescription string         `json:"custom_description,omitempty"`
	ExtraImages       []OverlayImage `json:"extra_images"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// OverlayPatch carries only the overlay fields touched by one edit.
// A nil field is left untouched; a pointer to "" clears the field.
type OverlayPatch struct {
	CustomTitle       *string `json:"custom_title,omitempty" validate:"omitempty,max=200"`
	SKU               *string `json:"sku,omitempty" validate:"omitempty,max=64"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=4000"`
	CustomDescription *string `json:"custom_description,omitempty" validate:"omitempty,max=20000"`
}

// IsEmpty reports whether the patch touches no field.
func (p OverlayPatch) IsEmpty() bool {
	return p.CustomTitle == nil && p.SKU == nil && p.Notes == nil && p.CustomDescription == nil
}

// Validate checks the length limits of every touched field.
func (p OverlayPatch) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Columns returns the touched fields keyed by their storage column name,
// in a stable order.
func (p OverlayPatch) Columns() []PatchColumn {
	var cols []PatchColumn
	if p.CustomTitle != nil {
		cols = append(cols, PatchColumn{Name: "custom_title", Value: *p.CustomTitle})
	}
	if p.SKU != nil {
		cols = append(cols, PatchColumn{Name: "sku", Value: *p.SKU})
	}
	if p.Notes != nil {
		cols = append(cols, PatchColumn{Name: "notes", Value: *p.Notes})
	}
	if p.CustomDescription != nil {
		cols = append(cols, PatchColumn{Name: "custom_description", Value: *p.CustomDescription})
	}
	return cols
}

// PatchColumn is a single column assignment derived from an OverlayPatch.
type PatchColumn struct {
	Name  string
	Value string
}
