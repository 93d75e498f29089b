package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses pretty", environment: "development", wantJSON: false},
		{name: "empty uses pretty", environment: "", wantJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Writer: &buf, Environment: tt.environment, Level: slog.LevelInfo})
			l.Info("hello")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
				assert.Contains(t, buf.String(), "hello")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	r := slog.NewRecord(time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC), slog.LevelWarn, "download retry", 0)
	r.AddAttrs(slog.String("media_id", "abc"), slog.Int("attempt", 2))
	require.NoError(t, h.Handle(context.Background(), r))

	out := buf.String()
	assert.Contains(t, out, "12:30:00")
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "download retry")
	assert.Contains(t, out, "[abc]")
	assert.Contains(t, out, "attempt=2")
}

func TestPrettyHandler_QuotesSpacedStrings(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewPrettyHandler(&buf, nil))
	l.Info("match", "query", "zelda game full ost")

	assert.Contains(t, buf.String(), `query="zelda game full ost"`)
}

func TestPrettyHandler_WithGroupPrefixesKeys(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewPrettyHandler(&buf, nil)).WithGroup("segment").With("track", 3)
	l.Info("done", "segments", 40)

	assert.Contains(t, buf.String(), "segment.track=3")
	assert.Contains(t, buf.String(), "segment.segments=40")
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()

	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestStage(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: "json", Level: slog.LevelInfo})

	Stage(l.Logger, "download", "PLxyz").Error("failed", "error", errors.New("exit status 1"))

	out := buf.String()
	assert.Contains(t, out, `"stage":"download"`)
	assert.Contains(t, out, `"media_id":"PLxyz"`)
	assert.Contains(t, out, `"error":"exit status 1"`)
}

func TestPrettyHandler_StageTag(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewPrettyHandler(&buf, nil)).WithGroup("job")
	Stage(l, "align", "dQw4w9WgXcQ").Info("aligned", "chapters", 12)

	out := buf.String()
	assert.Contains(t, out, "[align dQw4w9WgXcQ]")
	assert.Contains(t, out, "job.chapters=12")
	assert.NotContains(t, out, "stage=")
	assert.NotContains(t, out, "media_id=")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	require.NotNil(t, l)
	l.Error("nothing to see")
}
