package extractor

import (
	"context"

	"github.com/aresapp/ares-server/internal/chapters"
	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/youtube"
)

// playlistPageSize is the listing page size; a full page means more may follow.
const playlistPageSize = 100

// PlaylistChapters treats each playlist entry as a chapter whose timestamp
// is the summed duration of the entries before it.
func (e *Extractor) PlaylistChapters(ctx context.Context, listID string, gameID int64) ([]domain.Chapter, error) {
	log := logger.Stage(e.logger, "chapters", listID)

	pl, err := e.yt.PlaylistPage(ctx, listID)
	if err != nil {
		log.Error("playlist page fetch failed", "error", err)
		return nil, errors.ChapterExtraction(listID, "failed to load playlist").WithCause(err)
	}

	entries := pl.Entries
	token := pl.Continuation
	for len(entries) > 0 && len(entries)%playlistPageSize == 0 && token != "" {
		page, err := e.yt.Browse(ctx, pl, token)
		if err != nil {
			log.Error("playlist continuation failed", "error", err, "entries", len(entries))
			return nil, errors.ChapterExtraction(listID, "failed to load playlist continuation").WithCause(err)
		}
		if len(page.Entries) == 0 {
			break
		}
		entries = append(entries, page.Entries...)
		token = page.Continuation
	}

	withDurations := make([]domain.Chapter, 0, len(entries))
	for _, entry := range entries {
		d, err := youtube.ParseDuration(entry.Duration)
		if err != nil || d <= 0 {
			log.Warn("skipping playlist entry without duration", "video_id", entry.VideoID, "title", entry.Title)
			continue
		}
		withDurations = append(withDurations, domain.Chapter{ID: entry.VideoID, Title: entry.Title, Duration: &d})
	}

	chs := chapters.FromDurations(withDurations)
	if len(chs) == 0 {
		return nil, errors.ChapterExtraction(listID, "playlist has no playable entries")
	}

	log.Info("playlist chapters built", "count", len(chs))
	if err := e.save(listID, gameID, chs); err != nil {
		return nil, err
	}
	return chs, nil
}
