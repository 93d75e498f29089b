package aligner

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/chapters"
	"github.com/aresapp/ares-server/internal/domain"
	apperrors "github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/media/ffmpeg"
)

// fakeDecoder renders a loud signal with silence at fixed absolute times.
type fakeDecoder struct {
	mu      sync.Mutex
	silence []float64 // absolute second positions of one silent frame each
	total   float64
	fail    map[float64]bool
	// relative places a silent frame by index for a given window start.
	relative map[float64]int
	windows  [][2]float64
}

func (f *fakeDecoder) DecodeWindow(_ context.Context, _ string, start, length float64) ([]int16, error) {
	f.mu.Lock()
	f.windows = append(f.windows, [2]float64{start, length})
	f.mu.Unlock()

	if f.fail[start] {
		return nil, errors.New("decode error")
	}
	if f.total > 0 {
		length = math.Min(length, f.total-start)
	}
	n := int(length * ffmpeg.SampleRate)
	out := make([]int16, 2*n)
	for i := range n {
		t := start + float64(i)/ffmpeg.SampleRate
		v := int16(1000)
		if frame, ok := f.relative[start]; ok && i/FrameSamples == frame {
			v = 0
		}
		for _, s := range f.silence {
			if t >= s && t < s+FrameSeconds {
				v = 0
			}
		}
		out[2*i], out[2*i+1] = v, -v
	}
	return out, nil
}

func setup(t *testing.T, timestamps ...float64) Config {
	t.Helper()
	cfg := Config{ChaptersDir: t.TempDir(), Workers: 3}
	chs := make([]domain.Chapter, len(timestamps))
	for i, ts := range timestamps {
		chs[i] = domain.Chapter{Title: "Track", Timestamp: ts}
		chs[i].Title += string(rune('A' + i))
	}
	require.NoError(t, chapters.Save(cfg.ChaptersDir, "vid", domain.ChaptersFile{GameID: 3, Chapters: chs}))
	return cfg
}

func TestHelpers(t *testing.T) {
	amp := Amplitude([]int16{-3, 4, 5, -6, 7})
	assert.Equal(t, []float64{7, 11}, amp)

	assert.Equal(t, []float64{2, 5}, FrameMeans([]float64{1, 3, 4, 6, 9}, 2))
	assert.Empty(t, FrameMeans([]float64{1}, 2))

	assert.Equal(t, 1, ArgMin([]float64{3, 1, 2, 1}))
	assert.Equal(t, -1, ArgMin(nil))
	assert.InDelta(t, 0.0208333, FrameSeconds, 1e-6)
}

func TestAlign_MovesToQuietFrame(t *testing.T) {
	cfg := setup(t, 0, 60, 130)
	// Frame-aligned silences relative to each window start.
	dec := &fakeDecoder{silence: []float64{
		0 + 3*FrameSeconds,
		50 + 500*FrameSeconds,
		120 + 200*FrameSeconds,
	}}
	a := New(dec, cfg, logger.Discard())

	chs, err := a.Align(context.Background(), "vid", "/audio/vid.opus")
	require.NoError(t, err)

	require.Len(t, chs, 3)
	assert.InDelta(t, 3*FrameSeconds, *chs[0].CorrectedTimestamp, 1e-9)
	assert.InDelta(t, 50+500*FrameSeconds, *chs[1].CorrectedTimestamp, 1e-9)
	assert.InDelta(t, 120+200*FrameSeconds, *chs[2].CorrectedTimestamp, 1e-9)

	// The first window is clamped at zero and only 10 seconds long.
	assert.Contains(t, dec.windows, [2]float64{0, 10})

	file, err := chapters.Load(cfg.ChaptersDir, "vid")
	require.NoError(t, err)
	require.NotNil(t, file.Chapters[1].CorrectedTimestamp)
	assert.Equal(t, 60.0, file.Chapters[1].Timestamp)
}

func TestAlign_CorrectedNeverBeforeWindowStart(t *testing.T) {
	cfg := setup(t, 5, 40)
	a := New(&fakeDecoder{}, cfg, logger.Discard())

	chs, err := a.Align(context.Background(), "vid", "x")
	require.NoError(t, err)
	// Uniform signal: the first frame wins.
	assert.Equal(t, 0.0, *chs[0].CorrectedTimestamp)
	assert.Equal(t, 30.0, *chs[1].CorrectedTimestamp)
}

func TestAlign_OneFailureAbortsStage(t *testing.T) {
	cfg := setup(t, 20, 40, 60)
	dec := &fakeDecoder{fail: map[float64]bool{30: true}}
	a := New(dec, cfg, logger.Discard())

	_, err := a.Align(context.Background(), "vid", "x")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlignment))

	file, err := chapters.Load(cfg.ChaptersDir, "vid")
	require.NoError(t, err)
	for _, ch := range file.Chapters {
		assert.Nil(t, ch.CorrectedTimestamp, "no partial corrections are written")
	}
}

func TestAlign_ShortTailFailsWhenNoFrame(t *testing.T) {
	cfg := setup(t, 0, 100)
	dec := &fakeDecoder{total: 90.01}
	a := New(dec, cfg, logger.Discard())

	_, err := a.Align(context.Background(), "vid", "x")
	assert.ErrorContains(t, err, "less than one frame")
}

func TestAlign_OutOfOrderFallsBackToNominal(t *testing.T) {
	cfg := setup(t, 30, 45)
	dec := &fakeDecoder{relative: map[float64]int{20: 900, 35: 10}}
	a := New(dec, cfg, logger.Discard())

	chs, err := a.Align(context.Background(), "vid", "x")
	require.NoError(t, err)
	assert.InDelta(t, 20+900*FrameSeconds, *chs[0].CorrectedTimestamp, 1e-9)
	assert.Equal(t, 45.0, *chs[1].CorrectedTimestamp)
}

func TestAlign_UnorderableFails(t *testing.T) {
	cfg := setup(t, 30, 35)
	dec := &fakeDecoder{relative: map[float64]int{20: 900, 25: 10}}
	a := New(dec, cfg, logger.Discard())

	_, err := a.Align(context.Background(), "vid", "x")
	assert.ErrorContains(t, err, "cannot order")
}

func TestAlign_DebugPlots(t *testing.T) {
	cfg := setup(t, 12, 50)
	cfg.DebugPlots = true
	a := New(&fakeDecoder{silence: []float64{2 + 100*FrameSeconds}}, cfg, logger.Discard())

	_, err := a.Align(context.Background(), "vid", "x")
	require.NoError(t, err)

	for _, name := range []string{"0.svg", "1.svg"} {
		data, err := os.ReadFile(filepath.Join(PlotDir(cfg.ChaptersDir, "vid"), name))
		require.NoError(t, err)
		svg := string(data)
		assert.True(t, strings.HasPrefix(svg, "<svg"))
		assert.Contains(t, svg, "#cc3311")
		assert.Contains(t, svg, "#228833")
	}
}
