// Package aligner moves each chapter start onto the quietest point near its
// nominal timestamp.
package aligner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/aresapp/ares-server/internal/chapters"
	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/media/ffmpeg"
)

const (
	// WindowSeconds is searched on each side of the nominal timestamp.
	WindowSeconds = 10.0
	// FrameSamples is the number of stereo samples averaged per frame.
	FrameSamples = 1000
	// FrameSeconds is the duration of one frame at the decode rate.
	FrameSeconds = float64(FrameSamples) / ffmpeg.SampleRate
)

// Decoder produces interleaved stereo PCM for a time window.
type Decoder interface {
	DecodeWindow(ctx context.Context, path string, start, length float64) ([]int16, error)
}

// Config holds the aligner settings.
type Config struct {
	ChaptersDir string
	Workers     int
	DebugPlots  bool
}

// Aligner corrects chapter timestamps against the downloaded audio.
type Aligner struct {
	decoder Decoder
	cfg     Config
	logger  *slog.Logger
}

// New creates an aligner.
func New(decoder Decoder, cfg Config, logger *slog.Logger) *Aligner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Aligner{decoder: decoder, cfg: cfg, logger: logger}
}

// Window is the analysis of one chapter boundary.
type Window struct {
	Index     int
	Nominal   float64
	Start     float64
	Corrected float64
	// Amplitude is |L|+|R| per stereo sample; Means is the per-frame average.
	Amplitude []float64
	Means     []float64
	MinFrame  int
}

// Align loads the chapters of mediaID, corrects every timestamp against
// audioPath and writes the chapters file back. Any chapter failing aborts
// the stage.
func (a *Aligner) Align(ctx context.Context, mediaID, audioPath string) ([]domain.Chapter, error) {
	log := logger.Stage(a.logger, "align", mediaID)

	file, err := chapters.Load(a.cfg.ChaptersDir, mediaID)
	if err != nil {
		return nil, errors.Alignment(mediaID, err)
	}
	if len(file.Chapters) == 0 {
		return nil, errors.Alignment(mediaID, fmt.Errorf("chapters file is empty"))
	}

	workers := a.cfg.Workers
	var plots *plotter
	if a.cfg.DebugPlots {
		workers = 1
		plots, err = newPlotter(a.cfg.ChaptersDir, mediaID)
		if err != nil {
			log.Warn("debug plots disabled", "error", err)
			plots = nil
		}
	}

	windows, err := a.run(ctx, audioPath, file.Chapters, workers, func(w *Window) {
		if plots == nil {
			return
		}
		if err := plots.write(w); err != nil {
			log.Warn("failed to write plot", "index", w.Index, "error", err)
		}
	})
	if err != nil {
		log.Error("alignment failed", "error", err)
		return nil, errors.Alignment(mediaID, err)
	}

	prev := -1.0
	for i, w := range windows {
		corrected := w.Corrected
		if corrected <= prev {
			log.Warn("corrected timestamp out of order, keeping nominal",
				"index", i, "nominal", w.Nominal, "corrected", corrected)
			corrected = w.Nominal
			if corrected <= prev {
				return nil, errors.Alignment(mediaID, fmt.Errorf("chapter %d: cannot order %.3fs after %.3fs", i, corrected, prev))
			}
		}
		file.Chapters[i].CorrectedTimestamp = &corrected
		prev = corrected
	}

	if err := chapters.Save(a.cfg.ChaptersDir, mediaID, file); err != nil {
		return nil, errors.Alignment(mediaID, err)
	}

	log.Info("chapters aligned", "count", len(windows), "workers", workers)
	return file.Chapters, nil
}

// run analyzes every chapter on a fixed pool of workers and returns the
// windows in chapter order. The first error cancels the remaining work.
func (a *Aligner) run(ctx context.Context, audioPath string, chs []domain.Chapter, workers int, done func(*Window)) ([]Window, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	results := make([]Window, len(chs))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for range min(workers, len(chs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				w, err := a.analyze(ctx, audioPath, i, chs[i].Timestamp)
				if err != nil {
					fail(fmt.Errorf("chapter %d at %.3fs: %w", i, chs[i].Timestamp, err))
					continue
				}
				done(&w)
				// Traces are only needed for plotting.
				w.Amplitude, w.Means = nil, nil
				results[i] = w
			}
		}()
	}

feed:
	for i := range chs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Aligner) analyze(ctx context.Context, audioPath string, index int, nominal float64) (Window, error) {
	start := math.Max(0, nominal-WindowSeconds)
	samples, err := a.decoder.DecodeWindow(ctx, audioPath, start, nominal+WindowSeconds-start)
	if err != nil {
		return Window{}, err
	}

	amp := Amplitude(samples)
	means := FrameMeans(amp, FrameSamples)
	if len(means) == 0 {
		return Window{}, fmt.Errorf("window holds %d samples, less than one frame", len(amp))
	}
	idx := ArgMin(means)

	return Window{
		Index:     index,
		Nominal:   nominal,
		Start:     start,
		Corrected: start + float64(idx)*FrameSeconds,
		Amplitude: amp,
		Means:     means,
		MinFrame:  idx,
	}, nil
}

// Amplitude sums the absolute values of both channels of interleaved stereo
// samples. A trailing odd sample is ignored.
func Amplitude(interleaved []int16) []float64 {
	out := make([]float64, len(interleaved)/2)
	for i := range out {
		out[i] = math.Abs(float64(interleaved[2*i])) + math.Abs(float64(interleaved[2*i+1]))
	}
	return out
}

// FrameMeans averages consecutive complete frames of size samples. A partial
// trailing frame is dropped.
func FrameMeans(amp []float64, size int) []float64 {
	n := len(amp) / size
	out := make([]float64, n)
	for f := range n {
		var sum float64
		for _, v := range amp[f*size : (f+1)*size] {
			sum += v
		}
		out[f] = sum / float64(size)
	}
	return out
}

// ArgMin returns the index of the first smallest value, or -1 for an empty
// slice.
func ArgMin(values []float64) int {
	idx := -1
	for i, v := range values {
		if idx < 0 || v < values[idx] {
			idx = i
		}
	}
	return idx
}
