package db

import (
	"strings"
	"testing"

	"github.com/jonathan/listing-customizer/internal/types"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestBuildPatchUpsert(t *testing.T) {
	tests := []struct {
		name        string
		patch       types.OverlayPatch
		wantColumns string
		wantSets    []string
		notSets     []string
		wantArgs    []any
	}{
		{
			name:        "single column",
			patch:       types.OverlayPatch{SKU: strPtr("SKU-1")},
			wantColumns: "(user_id, product_id, sku) VALUES ($1, $2, $3)",
			wantSets:    []string{"sku = EXCLUDED.sku", "updated_at = NOW()"},
			notSets:     []string{"notes", "custom_title", "custom_description"},
			wantArgs:    []any{"u1", "B0ABCDEFGH", "SKU-1"},
		},
		{
			name:        "two columns keep stable order",
			patch:       types.OverlayPatch{Notes: strPtr("n"), CustomTitle: strPtr("t")},
			wantColumns: "(user_id, product_id, custom_title, notes) VALUES ($1, $2, $3, $4)",
			wantSets:    []string{"custom_title = EXCLUDED.custom_title", "notes = EXCLUDED.notes"},
			notSets:     []string{"sku", "custom_description"},
			wantArgs:    []any{"u1", "B0ABCDEFGH", "t", "n"},
		},
		{
			name:        "empty patch touches only updated_at",
			patch:       types.OverlayPatch{},
			wantColumns: "(user_id, product_id) VALUES ($1, $2)",
			wantSets:    []string{"DO UPDATE SET updated_at = NOW()"},
			notSets:     []string{"sku", "notes", "custom_title", "custom_description"},
			wantArgs:    []any{"u1", "B0ABCDEFGH"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildPatchUpsert("u1", "B0ABCDEFGH", tt.patch)

			assert.Contains(t, query, tt.wantColumns)
			assert.Contains(t, query, "ON CONFLICT (user_id, product_id)")
			for _, s := range tt.wantSets {
				assert.Contains(t, query, s)
			}
			setClause := query[strings.Index(query, "DO UPDATE SET"):]
			for _, col := range tt.notSets {
				assert.NotContains(t, setClause, col)
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
