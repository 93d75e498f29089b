// Package downloader fetches the audio of the selected media with yt-dlp and
// produces a single Opus file per media ID.
package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/aresapp/ares-server/internal/chapters"
	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/media/ffmpeg"
	"github.com/aresapp/ares-server/internal/retry"
)

// formatUnavailable is the yt-dlp message that triggers the m4a fallback.
const formatUnavailable = "Requested format is not available"

// Config holds the download bounds.
type Config struct {
	AudioDir    string
	ChaptersDir string
	// Concurrency bounds simultaneous yt-dlp processes across all runs.
	Concurrency int64
	// PlaylistRetry applies to each playlist entry, SingleRetry to a lone video.
	PlaylistRetry retry.Config
	SingleRetry   retry.Config
}

// Downloader turns a media reference into {AudioDir}/{mediaID}.opus.
type Downloader struct {
	tools  *ffmpeg.Tools
	cfg    Config
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// New creates a downloader. The semaphore is shared by every call made
// through the returned value.
func New(tools *ffmpeg.Tools, cfg Config, logger *slog.Logger) *Downloader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Downloader{
		tools:  tools,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.Concurrency),
		logger: logger,
	}
}

// Path returns where the audio of mediaID is written.
func (d *Downloader) Path(mediaID string) string {
	return filepath.Join(d.cfg.AudioDir, mediaID+".opus")
}

// Download fetches ref and returns the output path.
func (d *Downloader) Download(ctx context.Context, ref domain.MediaReference) (string, error) {
	switch ref.MediaType {
	case domain.MediaVideo:
		return d.Video(ctx, ref.MediaID)
	case domain.MediaPlaylist:
		return d.Playlist(ctx, ref.MediaID)
	default:
		return "", errors.Validationf("unknown media type %q", ref.MediaType)
	}
}

// Video downloads a single video, replacing any earlier file.
func (d *Downloader) Video(ctx context.Context, videoID string) (string, error) {
	log := logger.Stage(d.logger, "download", videoID)
	out := d.Path(videoID)

	if err := os.MkdirAll(d.cfg.AudioDir, 0o755); err != nil {
		return "", errors.Download(videoID, err)
	}
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return "", errors.Download(videoID, err)
	}

	err := retry.Run(ctx, d.cfg.SingleRetry, retry.Always, func(ctx context.Context) error {
		_, err := d.fetch(ctx, log, videoID, out, d.cfg.AudioDir)
		if err != nil {
			log.Warn("download attempt failed", "error", err)
		}
		return err
	})
	if err != nil {
		log.Error("download failed", "error", err)
		return "", errors.Download(videoID, err)
	}

	log.Info("downloaded video", "path", out)
	return out, nil
}

// Playlist downloads every entry of a playlist chapters file concurrently,
// rewrites the chapter timestamps from the probed file durations and
// concatenates the entries into one file.
func (d *Downloader) Playlist(ctx context.Context, listID string) (string, error) {
	log := logger.Stage(d.logger, "download", listID)

	file, err := chapters.Load(d.cfg.ChaptersDir, listID)
	if err != nil {
		return "", errors.Download(listID, err)
	}
	ids := make([]string, 0, len(file.Chapters))
	for _, ch := range file.Chapters {
		if ch.ID == "" {
			return "", errors.Download(listID, fmt.Errorf("chapter %q has no video id", ch.Title))
		}
		ids = append(ids, ch.ID)
	}
	if len(ids) == 0 {
		return "", errors.Download(listID, fmt.Errorf("chapters file is empty"))
	}

	scratch := filepath.Join(d.cfg.AudioDir, listID)
	if err := os.RemoveAll(scratch); err != nil {
		return "", errors.Download(listID, err)
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return "", errors.Download(listID, err)
	}

	reencode, err := d.fetchAll(ctx, log, scratch, ids)
	if err != nil {
		log.Error("playlist download failed", "error", err)
		return "", errors.Download(listID, err)
	}
	log.Info("downloaded playlist entries", "count", len(ids), "reencode", reencode)

	if err := d.fixTimestamps(ctx, scratch, listID, file); err != nil {
		log.Error("timestamp fix failed", "error", err)
		return "", errors.Download(listID, err)
	}

	out := d.Path(listID)
	listFile := filepath.Join(scratch, "concat.txt")
	if err := writeConcatList(listFile, scratch, ids); err != nil {
		return "", errors.Download(listID, err)
	}
	if reencode {
		log.Warn("re-encoding playlist audio, this may take a while")
	}
	if err := d.tools.Concat(ctx, listFile, out, reencode); err != nil {
		log.Error("concat failed", "error", err)
		return "", errors.Download(listID, err)
	}

	if err := os.RemoveAll(scratch); err != nil {
		log.Warn("failed to remove scratch directory", "path", scratch, "error", err)
	}
	log.Info("merged playlist audio", "path", out)
	return out, nil
}

// fetchAll downloads ids into scratch and waits for all of them. Any entry
// exhausting its retries fails the batch.
func (d *Downloader) fetchAll(ctx context.Context, log *slog.Logger, scratch string, ids []string) (bool, error) {
	var (
		mu       sync.Mutex
		reencode bool
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			if err := d.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer d.sem.Release(1)

			out := filepath.Join(scratch, id+".opus")
			err := retry.Run(gctx, d.cfg.PlaylistRetry, retry.Always, func(ctx context.Context) error {
				re, err := d.fetch(ctx, log, id, out, scratch)
				if err != nil {
					log.Warn("retrying download", "video_id", id, "error", err)
					return err
				}
				if re {
					mu.Lock()
					reencode = true
					mu.Unlock()
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("video %s: %w", id, err)
			}
			return nil
		})
	}

	err := g.Wait()
	return reencode, err
}

// fetch runs yt-dlp for one video. When no WebM audio exists it downloads
// the m4a stream into scratch and re-encodes it; reencoded reports that.
func (d *Downloader) fetch(ctx context.Context, log *slog.Logger, videoID, out, scratch string) (reencoded bool, err error) {
	err = d.tools.YtDlp(ctx,
		"--force-ipv4",
		"--no-check-certificate",
		"-f", "bestaudio[ext=webm]",
		"-x",
		"--audio-format", "opus",
		"--audio-quality", "0",
		"--output", out,
		"https://www.youtube.com/watch?v="+videoID,
	)
	if err == nil {
		return false, nil
	}
	if !ffmpeg.StderrContains(err, formatUnavailable) {
		return false, err
	}

	log.Warn("webm audio unavailable, falling back to m4a", "video_id", videoID)
	backup := filepath.Join(scratch, videoID+".m4a")
	// yt-dlp skips outputs that already exist, partial ones included.
	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("remove stale m4a: %w", err)
	}
	if err := d.tools.YtDlp(ctx,
		"--force-ipv4",
		"--no-check-certificate",
		"-f", "bestaudio[ext=m4a]",
		"--output", backup,
		"https://youtu.be/"+videoID,
	); err != nil {
		return false, fmt.Errorf("m4a fallback: %w", err)
	}
	if err := d.tools.Transcode(ctx, backup, out); err != nil {
		return false, fmt.Errorf("transcode fallback: %w", err)
	}
	_ = os.Remove(backup)
	return true, nil
}

// fixTimestamps replaces the listing durations with the probed ones so the
// chapter starts match the concatenated file.
func (d *Downloader) fixTimestamps(ctx context.Context, scratch, listID string, file domain.ChaptersFile) error {
	var offset float64
	fixed := make([]domain.Chapter, len(file.Chapters))
	for i, ch := range file.Chapters {
		dur, err := d.tools.Duration(ctx, filepath.Join(scratch, ch.ID+".opus"))
		if err != nil {
			return err
		}
		fixed[i] = domain.Chapter{ID: ch.ID, Title: ch.Title, Timestamp: offset}
		offset += dur
	}

	file.Chapters = fixed
	return chapters.Save(d.cfg.ChaptersDir, listID, file)
}

func writeConcatList(path, dir string, ids []string) error {
	var b strings.Builder
	for _, id := range ids {
		p := filepath.Join(dir, id+".opus")
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
