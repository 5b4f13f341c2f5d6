package listing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle80(t *testing.T) {
	long := strings.Repeat("word ", 20) // 100 chars
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"short unchanged", "  Wireless Mouse Black ", "Wireless Mouse Black"},
		{"exactly 80", strings.Repeat("a", 80), strings.Repeat("a", 80)},
		{"backs off to word boundary", long, strings.TrimSpace(strings.Repeat("word ", 16))},
		{"no space hard cut", strings.Repeat("x", 90), strings.Repeat("x", 80)},
		{
			"boundary falls on space",
			strings.Repeat("a", 80) + " tail",
			strings.Repeat("a", 80),
		},
		{
			"word split at limit",
			strings.Repeat("a", 75) + " bcdefghij",
			strings.Repeat("a", 75),
		},
		{"multibyte counted as characters", strings.Repeat("é", 85), strings.Repeat("é", 80)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Title80(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.LessOrEqual(t, len([]rune(got)), TitleLimit)
		})
	}
}

func TestComposeText_Full(t *testing.T) {
	got := ComposeText(
		"Wireless Mouse",
		map[string]string{"brand": "Acme", "colour": "Black"},
		[]string{"Silent clicks [2024 model]", "Long battery [see note] life"},
	)

	expected := strings.Join([]string{
		"Wireless Mouse",
		"",
		"Brand: Acme",
		"Colour: Black",
		"",
		"✨ Key Features",
		"",
		"⚫️ Silent clicks",
		"",
		"⚫️ Long battery  life",
		"",
		"📦 Fast Dispatch from UK   |   🚚 Tracked Delivery Included",
	}, "\n")
	assert.Equal(t, expected, got)
}

func TestComposeText_Minimal(t *testing.T) {
	got := ComposeText("Title only", nil, nil)
	assert.Equal(t, "Title only\n\n"+DispatchNotice, got)
}

func TestComposeText_ColourOnly(t *testing.T) {
	got := ComposeText("T", map[string]string{"colour": "Red"}, nil)
	assert.Equal(t, "T\n\nColour: Red\n\n"+DispatchNotice, got)
}

func TestComposeText_Deterministic(t *testing.T) {
	attrs := map[string]string{"brand": "Acme", "colour": "Black", "weight": "90 g"}
	bullets := []string{"One", "Two"}
	assert.Equal(t, ComposeText("T", attrs, bullets), ComposeText("T", attrs, bullets))
}
