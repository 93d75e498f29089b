// Package extractor recovers chapter lists from YouTube videos and playlists
// and writes them to chapters files for the later pipeline stages.
package extractor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aresapp/ares-server/internal/chapters"
	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/youtube"
)

// Source is the subset of the YouTube client the extractors need.
type Source interface {
	WatchPage(ctx context.Context, videoID string) (*youtube.WatchData, error)
	Comments(ctx context.Context, videoID, token string, fn func(youtube.Comment) bool) error
	PlaylistPage(ctx context.Context, listID string) (*youtube.Playlist, error)
	Browse(ctx context.Context, pl *youtube.Playlist, token string) (*youtube.BrowsePage, error)
}

// Strategy is one way of finding chapters on a watch page. ok is false when
// the strategy found nothing usable; err is reserved for failures worth
// logging.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, w *youtube.WatchData) (chs []domain.Chapter, ok bool, err error)
}

// Extractor finds chapters for a media reference.
type Extractor struct {
	yt          Source
	chaptersDir string
	strategies  []Strategy
	logger      *slog.Logger
}

// New creates an extractor writing chapters files under chaptersDir. Video
// strategies are tried in order: player markers, description, comments.
func New(yt Source, chaptersDir string, logger *slog.Logger) *Extractor {
	e := &Extractor{yt: yt, chaptersDir: chaptersDir, logger: logger}
	e.strategies = []Strategy{
		{Name: "markers", Run: fromMarkers},
		{Name: "description", Run: fromDescription},
		{Name: "comments", Run: e.fromComments},
	}
	return e
}

// Extract dispatches on the media type and persists the result.
func (e *Extractor) Extract(ctx context.Context, ref domain.MediaReference, gameID int64) ([]domain.Chapter, error) {
	switch ref.MediaType {
	case domain.MediaPlaylist:
		return e.PlaylistChapters(ctx, ref.MediaID, gameID)
	case domain.MediaVideo:
		return e.VideoChapters(ctx, ref.MediaID, gameID)
	default:
		return nil, errors.Validationf("unknown media type %q", ref.MediaType)
	}
}

// VideoChapters runs the strategies in order and keeps the first success.
func (e *Extractor) VideoChapters(ctx context.Context, videoID string, gameID int64) ([]domain.Chapter, error) {
	log := logger.Stage(e.logger, "chapters", videoID)

	watch, err := e.yt.WatchPage(ctx, videoID)
	if err != nil {
		log.Error("watch page fetch failed", "error", err)
		return nil, errors.ChapterExtraction(videoID, "failed to load watch page").WithCause(err)
	}

	for _, s := range e.strategies {
		chs, ok, err := s.Run(ctx, watch)
		if err != nil {
			log.Warn("chapter strategy failed", "strategy", s.Name, "error", err)
			continue
		}
		if !ok {
			log.Debug("chapter strategy found nothing", "strategy", s.Name)
			continue
		}

		log.Info("chapters found", "strategy", s.Name, "count", len(chs))
		if a := chapters.Analyze(chs); a.MostlyGeneric {
			log.Warn("chapter titles are mostly placeholders", "generic", a.GenericCount, "total", a.Total)
		}
		if err := e.save(videoID, gameID, chs); err != nil {
			return nil, err
		}
		return chs, nil
	}

	log.Warn("no chapters found")
	return nil, errors.ChapterExtraction(videoID, "no chapters found")
}

// Saved returns the chapters previously written for mediaID. The file must
// belong to gameID and hold a non-empty, well-ordered chapter list.
func (e *Extractor) Saved(mediaID string, gameID int64) ([]domain.Chapter, error) {
	file, err := chapters.Load(e.chaptersDir, mediaID)
	if err != nil {
		return nil, err
	}
	if file.GameID != gameID {
		return nil, fmt.Errorf("chapters %s belong to game %d, not %d", mediaID, file.GameID, gameID)
	}
	if len(file.Chapters) == 0 {
		return nil, fmt.Errorf("chapters %s: empty file", mediaID)
	}
	if err := chapters.Validate(file.Chapters); err != nil {
		return nil, fmt.Errorf("chapters %s: %w", mediaID, err)
	}
	return file.Chapters, nil
}

func (e *Extractor) save(mediaID string, gameID int64, chs []domain.Chapter) error {
	file := domain.ChaptersFile{GameID: gameID, Chapters: chs}
	if err := chapters.Save(e.chaptersDir, mediaID, file); err != nil {
		return errors.ChapterExtraction(mediaID, "failed to save chapters").WithCause(err)
	}
	return nil
}

// fromMarkers maps the player bar's chapter markers directly.
func fromMarkers(_ context.Context, w *youtube.WatchData) ([]domain.Chapter, bool, error) {
	if len(w.Markers) == 0 {
		return nil, false, nil
	}

	out := make([]domain.Chapter, 0, len(w.Markers))
	last := -1.0
	for _, m := range w.Markers {
		ts := m.StartMillis / 1000
		if ts <= last {
			continue
		}
		out = append(out, domain.Chapter{Title: chapters.CleanLine(m.Title), Timestamp: ts})
		last = ts
	}
	return out, len(out) > 0, nil
}

// fromDescription parses time links in the attributed description.
func fromDescription(_ context.Context, w *youtube.WatchData) ([]domain.Chapter, bool, error) {
	if w.Description == nil {
		return nil, false, nil
	}
	chs := chapters.Collect(annotated(w.Description))
	return chs, chapters.Accepted(chs), nil
}

// fromComments walks the comment pages and keeps the first comment that
// yields an acceptable chapter list.
func (e *Extractor) fromComments(ctx context.Context, w *youtube.WatchData) ([]domain.Chapter, bool, error) {
	if w.CommentsToken == "" {
		e.logger.Debug("comments disabled", "media_id", w.VideoID)
		return nil, false, nil
	}

	var found []domain.Chapter
	scanned := 0
	err := e.yt.Comments(ctx, w.VideoID, w.CommentsToken, func(c youtube.Comment) bool {
		scanned++
		chs := commentChapters(c)
		if chapters.Accepted(chs) {
			found = chs
			return false
		}
		return true
	})
	if err != nil {
		return nil, false, fmt.Errorf("comments: %w", err)
	}

	e.logger.Debug("comments scanned", "media_id", w.VideoID, "count", scanned, "found", found != nil)
	return found, found != nil, nil
}

func commentChapters(c youtube.Comment) []domain.Chapter {
	if c.Attributed != nil {
		return chapters.Collect(annotated(c.Attributed))
	}
	runs := make([]chapters.Run, len(c.Runs))
	for i, r := range c.Runs {
		runs[i] = chapters.Run{Text: r.Text, Seconds: r.StartSeconds}
	}
	return chapters.Collect(chapters.FromRuns(runs))
}

func annotated(t *youtube.AttributedText) chapters.Annotated {
	links := make([]chapters.Link, len(t.Links))
	for i, l := range t.Links {
		links[i] = chapters.Link{Start: l.StartIndex, Length: l.Length, Seconds: l.StartSeconds}
	}
	return chapters.Annotated{Content: t.Content, Links: links}
}
