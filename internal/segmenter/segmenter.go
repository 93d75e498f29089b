// Package segmenter cuts an aligned audio file into per-track DASH streams.
package segmenter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aresapp/ares-server/internal/chapters"
	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/media/ffmpeg"
	"github.com/aresapp/ares-server/internal/util"
)

const (
	// SegmentSeconds is the fixed streaming segment length.
	SegmentSeconds = 3
	// ManifestName is the manifest file inside each track directory.
	ManifestName = "manifest.mpd"
	// InitSegment is the first segment written by ffmpeg.
	InitSegment = "segment_0000.webm"
)

// Tools is the ffmpeg surface the segmenter uses.
type Tools interface {
	Duration(ctx context.Context, path string) (float64, error)
	StreamInfo(ctx context.Context, path string) (ffmpeg.StreamInfo, error)
	Segment(ctx context.Context, source string, start, end float64, segmentSeconds int, pattern string) error
}

// Config holds output locations and pool size.
type Config struct {
	ChaptersDir string
	MediaDir    string
	// PublicURL prefixes every manifest segment URL.
	PublicURL string
	Workers   int
}

// Segmenter produces the tracks of one album.
type Segmenter struct {
	tools  Tools
	cfg    Config
	logger *slog.Logger
}

// New creates a segmenter.
func New(tools Tools, cfg Config, logger *slog.Logger) *Segmenter {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Segmenter{tools: tools, cfg: cfg, logger: logger}
}

// Job is the immutable description of one track cut.
type Job struct {
	GameID     int64
	AlbumID    int64
	TrackIndex int
	Title      string
	Start      float64
	End        float64
	Source     string
}

// Duration is the length of the track.
func (j Job) Duration() float64 { return j.End - j.Start }

// Result is a finished album.
type Result struct {
	Tracks    []domain.Track
	Manifests []domain.SegmentManifest
}

// AlbumDir is the output directory of an album.
func (s *Segmenter) AlbumDir(gameID, albumID int64) string {
	return filepath.Join(s.cfg.MediaDir, strconv.FormatInt(gameID, 10), strconv.FormatInt(albumID, 10))
}

// Segment reads the aligned chapters of mediaID, wipes the album directory
// and cuts every track of audioPath into it. A single failed track fails the
// album.
func (s *Segmenter) Segment(ctx context.Context, mediaID, audioPath string, albumID int64) (*Result, error) {
	log := logger.Stage(s.logger, "segment", mediaID).With("album_id", albumID)

	file, err := chapters.Load(s.cfg.ChaptersDir, mediaID)
	if err != nil {
		return nil, errors.Segmentation(mediaID, err)
	}
	if len(file.Chapters) == 0 {
		return nil, errors.Segmentation(mediaID, fmt.Errorf("chapters file is empty"))
	}

	total, err := s.tools.Duration(ctx, audioPath)
	if err != nil {
		return nil, errors.Segmentation(mediaID, err)
	}

	jobs, err := Plan(file.GameID, albumID, audioPath, file.Chapters, total)
	if err != nil {
		return nil, errors.Segmentation(mediaID, err)
	}

	albumDir := s.AlbumDir(file.GameID, albumID)
	if err := os.RemoveAll(albumDir); err != nil {
		return nil, errors.Segmentation(mediaID, err)
	}
	if err := os.MkdirAll(albumDir, 0o755); err != nil {
		return nil, errors.Segmentation(mediaID, err)
	}

	manifests, err := s.runAll(ctx, jobs)
	if err != nil {
		log.Error("segmentation failed", "error", err)
		return nil, errors.Segmentation(mediaID, err)
	}

	res := &Result{Manifests: manifests, Tracks: make([]domain.Track, len(jobs))}
	for i, j := range jobs {
		res.Tracks[i] = domain.Track{
			ID:        j.TrackIndex,
			Title:     j.Title,
			Slug:      util.SlugifyOr(j.Title, "track-"+strconv.Itoa(j.TrackIndex)),
			Duration:  j.Duration(),
			SourceRef: manifests[i].Path,
		}
	}

	log.Info("album segmented", "tracks", len(jobs), "duration", total)
	return res, nil
}

// Plan turns chapters into track jobs. Each track runs from its start to the
// next chapter's start; the last one runs to total. The first track always
// starts at 0 so the windows tile the whole source.
func Plan(gameID, albumID int64, source string, chs []domain.Chapter, total float64) ([]Job, error) {
	jobs := make([]Job, len(chs))
	for i, ch := range chs {
		start := ch.Start()
		if i == 0 {
			start = 0
		}
		end := total
		if i+1 < len(chs) {
			end = chs[i+1].Start()
		}
		if end <= start {
			return nil, fmt.Errorf("track %d: empty window [%.3f, %.3f)", i, start, end)
		}
		jobs[i] = Job{
			GameID:     gameID,
			AlbumID:    albumID,
			TrackIndex: i,
			Title:      ch.Title,
			Start:      start,
			End:        end,
			Source:     source,
		}
	}
	return jobs, nil
}

// runAll processes jobs on a fixed pool and waits for every one of them.
func (s *Segmenter) runAll(ctx context.Context, jobs []Job) ([]domain.SegmentManifest, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan Job)
	manifests := make([]domain.SegmentManifest, len(jobs))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for range min(s.cfg.Workers, len(jobs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				m, err := s.process(ctx, job)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("track %d: %w", job.TrackIndex, err)
						cancel()
					}
					mu.Unlock()
					continue
				}
				manifests[job.TrackIndex] = m
			}
		}()
	}

feed:
	for _, job := range jobs {
		select {
		case queue <- job:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return manifests, nil
}

// process cuts one track, probes its first segment and writes its manifest.
func (s *Segmenter) process(ctx context.Context, job Job) (domain.SegmentManifest, error) {
	idx := strconv.Itoa(job.TrackIndex)
	dir := filepath.Join(s.AlbumDir(job.GameID, job.AlbumID), idx)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.SegmentManifest{}, err
	}

	if err := s.tools.Segment(ctx, job.Source, job.Start, job.End, SegmentSeconds, filepath.Join(dir, "segment_%04d.webm")); err != nil {
		return domain.SegmentManifest{}, err
	}

	info, err := s.tools.StreamInfo(ctx, filepath.Join(dir, InitSegment))
	if err != nil {
		return domain.SegmentManifest{}, err
	}

	count, err := countSegments(dir)
	if err != nil {
		return domain.SegmentManifest{}, err
	}

	rel := strings.Join([]string{strconv.FormatInt(job.GameID, 10), strconv.FormatInt(job.AlbumID, 10), idx}, "/")
	mpd := NewMPD(ManifestParams{
		GameID:         job.GameID,
		TrackIndex:     job.TrackIndex,
		BaseURL:        s.cfg.PublicURL + "/media/" + rel,
		Duration:       job.Duration(),
		SegmentSeconds: SegmentSeconds,
		SampleRate:     info.SampleRate,
		Bitrate:        info.Bitrate,
	})
	if err := mpd.WriteFile(filepath.Join(dir, ManifestName)); err != nil {
		return domain.SegmentManifest{}, err
	}

	s.logger.Debug("track segmented", "track", job.TrackIndex, "segments", count, "duration", job.Duration())
	return domain.SegmentManifest{
		TrackIndex:   job.TrackIndex,
		SegmentCount: count,
		Duration:     job.Duration(),
		SampleRate:   info.SampleRate,
		Bitrate:      info.Bitrate,
		Codec:        "opus",
		Path:         rel + "/" + ManifestName,
	}, nil
}

func countSegments(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "segment_*.webm"))
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("no segments written to %s", dir)
	}
	return len(matches), nil
}
