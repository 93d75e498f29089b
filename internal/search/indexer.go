package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/store/sqlite"
)

// Source is the catalog read side the indexer needs.
type Source interface {
	GetGame(ctx context.Context, gameID int64) (*domain.Game, error)
	ListGames(ctx context.Context) ([]*domain.Game, error)
	ListGameTracks(ctx context.Context, gameID int64) ([]sqlite.TrackHit, error)
}

// Indexer keeps the search index in step with the catalog.
type Indexer struct {
	index  *SearchIndex
	source Source
	logger *slog.Logger
}

// NewIndexer creates an indexer over index reading from source.
func NewIndexer(index *SearchIndex, source Source, logger *slog.Logger) *Indexer {
	return &Indexer{index: index, source: source, logger: logger}
}

// Index returns the underlying search index.
func (i *Indexer) Index() *SearchIndex {
	return i.index
}

// IndexGame (re)indexes a game and all its tracks.
func (i *Indexer) IndexGame(ctx context.Context, gameID int64) error {
	g, err := i.source.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	tracks, err := i.source.ListGameTracks(ctx, gameID)
	if err != nil {
		return err
	}

	// Drop stale track documents of an older album.
	if err := i.index.DeleteGame(ctx, gameID); err != nil {
		return err
	}

	docs := make([]*SearchDocument, 0, len(tracks)+1)
	docs = append(docs, GameToSearchDocument(g))
	for _, t := range tracks {
		docs = append(docs, TrackToSearchDocument(t.GameID, t.GameName, t.AlbumID, t.Track))
	}
	if err := i.index.IndexDocuments(docs); err != nil {
		return fmt.Errorf("index game %d: %w", gameID, err)
	}

	i.logger.Debug("game indexed", slog.Int64("game_id", gameID), slog.Int("tracks", len(tracks)))
	return nil
}

// RemoveGame drops a game from the index.
func (i *Indexer) RemoveGame(ctx context.Context, gameID int64) error {
	return i.index.DeleteGame(ctx, gameID)
}

// Reindex rebuilds the whole index from the catalog.
func (i *Indexer) Reindex(ctx context.Context) (int, error) {
	if err := i.index.Rebuild(); err != nil {
		return 0, err
	}
	games, err := i.source.ListGames(ctx)
	if err != nil {
		return 0, err
	}

	var docs []*SearchDocument
	for _, g := range games {
		full, err := i.source.GetGame(ctx, g.ID)
		if err != nil {
			return 0, err
		}
		docs = append(docs, GameToSearchDocument(full))

		tracks, err := i.source.ListGameTracks(ctx, g.ID)
		if err != nil {
			return 0, err
		}
		for _, t := range tracks {
			docs = append(docs, TrackToSearchDocument(t.GameID, t.GameName, t.AlbumID, t.Track))
		}
	}

	if err := i.index.IndexDocuments(docs); err != nil {
		return 0, err
	}
	i.logger.Info("search index rebuilt from catalog",
		slog.Int("games", len(games)),
		slog.Int("documents", len(docs)),
	)
	return len(docs), nil
}

// ReindexIfEmpty rebuilds the index when it holds no documents, as after a
// mapping version change.
func (i *Indexer) ReindexIfEmpty(ctx context.Context) error {
	count, err := i.index.DocumentCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = i.Reindex(ctx)
	return err
}
