package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Format(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		environment string
		want        string
	}{
		{name: "explicit json", format: "json", want: `"msg":"hello"`},
		{name: "explicit text", format: "text", want: "msg=hello"},
		{name: "production defaults to json", environment: "production", want: `"msg":"hello"`},
		{name: "development defaults to text", environment: "development", want: "msg=hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Writer: &buf, Format: tt.format, Environment: tt.environment})
			log.Info("hello", "tier", "direct-desktop")

			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "direct-desktop")
		})
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: FormatText, Level: slog.LevelWarn})

	log.Info("quiet")
	log.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("dropped")
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
