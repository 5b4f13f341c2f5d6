package images

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

const cdn = "https://m.media-amazon.com/images/I/"

func TestCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain jpg", cdn + "71abc.jpg", cdn + "71abc.jpg"},
		{"query string", cdn + "71abc.jpg?v=3", cdn + "71abc.jpg"},
		{"size token", cdn + "71abc._AC_SX342_.jpg", cdn + "71abc.jpg"},
		{"stacked size tokens", cdn + "71abc._AC_._SX342_.jpg", cdn + "71abc.jpg"},
		{"size token and query", cdn + "71abc._SL1500_.jpg?x=1", cdn + "71abc.jpg"},
		{"escaped ampersand query", cdn + `71abc.png?a=1\u0026b=2`, cdn + "71abc.png"},
		{"uppercase extension", cdn + "71abc.JPEG", cdn + "71abc.JPEG"},
		{"webp", cdn + "71abc.webp", cdn + "71abc.webp"},
		{"gif rejected", cdn + "71abc.gif", ""},
		{"no extension rejected", "https://example.test/pixel", ""},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Canonical(tt.input))
		})
	}
}

func TestNormalize_DedupPreservesOrder(t *testing.T) {
	in := []string{
		cdn + "B.jpg",
		cdn + "A._AC_SX342_.jpg",
		cdn + "B.jpg?v=2",
		cdn + "A.jpg",
		cdn + "C.svg",
		cdn + "C.png",
	}
	assert.Equal(t, []string{cdn + "B.jpg", cdn + "A.jpg", cdn + "C.png"}, Normalize(in))
}

func TestNormalize_CapsAtMaxImages(t *testing.T) {
	var in []string
	for i := 0; i < 20; i++ {
		in = append(in, fmt.Sprintf("%simg%02d.jpg", cdn, i))
	}

	out := Normalize(in)
	assert.Len(t, out, MaxImages)
	for i, u := range out {
		assert.Equal(t, fmt.Sprintf("%simg%02d.jpg", cdn, i), u)
	}
}

func TestNormalize_DuplicatesDoNotConsumeCap(t *testing.T) {
	var in []string
	for i := 0; i < 20; i++ {
		u := fmt.Sprintf("%simg%02d.jpg", cdn, i)
		in = append(in, u, u+"?v=1", fmt.Sprintf("%simg%02d._SX38_.jpg", cdn, i))
	}
	out := Normalize(in)
	assert.Len(t, out, MaxImages)
	assert.Equal(t, cdn+"img11.jpg", out[MaxImages-1])
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.NotNil(t, Normalize(nil))
}
