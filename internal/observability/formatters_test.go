package observability

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/listing-customizer/internal/fetch"
	"github.com/jonathan/listing-customizer/internal/service"
	"github.com/jonathan/listing-customizer/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintListing(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	l := &types.ComposedListing{
		ProductID:     "B0ABCDEFGH",
		Title80:       "Acme Wireless Mouse",
		Price:         "£19.99",
		SKU:           "SKU-1",
		Bullets:       []string{"Quiet", "Long battery"},
		Attributes:    map[string]string{"colour": "Black", "brand": "Acme"},
		ScrapedImages: []string{"a.jpg"},
		Images:        []string{"a.jpg", "/uploads/u/b.png"},
		Status:        types.StatusOK,
		TierUsed:      2,
		FromCache:     true,
	}

	p.PrintListing(l)
	output := buf.String()

	assert.Contains(t, output, "LISTING")
	assert.Contains(t, output, "B0ABCDEFGH")
	assert.Contains(t, output, "(tier 2) [cached]")
	assert.Contains(t, output, "£19.99")
	assert.Contains(t, output, "SKU-1")
	assert.Contains(t, output, "• Quiet")
	assert.Contains(t, output, "1 scraped, 1 uploaded")
	assert.Less(t, strings.Index(output, "brand:"), strings.Index(output, "colour:"))
}

func TestPrintListing_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintListing(nil)

	assert.Empty(t, buf.String())
}

func TestPrintListing_ManyBullets(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	bullets := make([]string, 8)
	for i := range bullets {
		bullets[i] = fmt.Sprintf("bullet %d", i)
	}
	p.PrintListing(&types.ComposedListing{ProductID: "B0ABCDEFGH", Bullets: bullets})
	output := buf.String()

	assert.Contains(t, output, "bullet 4")
	assert.NotContains(t, output, "bullet 5")
	assert.Contains(t, output, "... and 3 more")
}

func TestPrintAttempts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAttempts([]fetch.Attempt{
		{Tier: "direct-desktop", Index: 1, Err: errors.New("status 503"), Duration: 120 * time.Millisecond},
		{Tier: "direct-mobile", Index: 2, Bytes: 2048, Duration: time.Second},
		{Tier: "unlocker", Index: 3, Bytes: 4096, ProbePassed: true, Duration: 2 * time.Second},
	})
	output := buf.String()

	assert.Contains(t, output, "FETCH ATTEMPTS")
	assert.Contains(t, output, "✗ 1. direct-desktop")
	assert.Contains(t, output, "status 503")
	assert.Contains(t, output, "~ 2. direct-mobile")
	assert.Contains(t, output, "✓ 3. unlocker")
	assert.Contains(t, output, "4096 bytes")
}

func TestPrintAttempts_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintAttempts(nil)
	assert.Empty(t, buf.String())
}

func TestPrintWarmResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintWarmResults([]service.WarmResult{
		{Ref: "B0ABCDEFGH", ProductID: "B0ABCDEFGH", Status: types.StatusOK},
		{Ref: "B0ZZZZZZZZ", ProductID: "B0ZZZZZZZZ", Status: types.StatusOK, FromCache: true},
		{Ref: "nope", Err: errors.New("invalid product reference")},
	})
	output := buf.String()

	assert.Contains(t, output, "CACHE WARM")
	assert.Contains(t, output, "✓ B0ABCDEFGH")
	assert.Contains(t, output, "(cached)")
	assert.Contains(t, output, "✗ nope")
	assert.Contains(t, output, "2 of 3 references warmed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate(strings.Repeat("é", 20), 10))
}
