package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/sse"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGames",
		Method:      http.MethodGet,
		Path:        "/api/v1/games",
		Summary:     "List games",
		Tags:        []string{"Catalog"},
	}, s.handleListGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGame",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/{id}",
		Summary:     "Get game",
		Tags:        []string{"Catalog"},
	}, s.handleGetGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteGame",
		Method:      http.MethodDelete,
		Path:        "/api/v1/games/{id}",
		Summary:     "Delete game",
		Description: "Removes the game with its albums and tracks from the catalog and the search index. Media files are kept.",
		Tags:        []string{"Catalog"},
	}, s.handleDeleteGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "listGameAlbums",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/{id}/albums",
		Summary:     "List albums of a game",
		Tags:        []string{"Catalog"},
	}, s.handleListAlbums)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAlbumTracks",
		Method:      http.MethodGet,
		Path:        "/api/v1/albums/{id}/tracks",
		Summary:     "List tracks of an album",
		Tags:        []string{"Catalog"},
	}, s.handleListTracks)
}

// GameIDInput identifies a game by its IGDB id.
type GameIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"IGDB game ID"`
}

// AlbumIDInput identifies an album.
type AlbumIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Album ID"`
}

// GameOutput wraps a game for Huma.
type GameOutput struct {
	Body *domain.Game
}

// ListGamesOutput wraps the game list for Huma.
type ListGamesOutput struct {
	Body struct {
		Games []*domain.Game `json:"games"`
	}
}

// AlbumResponse is an album with the location of its media.
type AlbumResponse struct {
	domain.Album
	MediaPath string `json:"mediaPath" doc:"Path under which the track folders are served, each holding manifest.mpd"`
}

// ListAlbumsOutput wraps the album list for Huma.
type ListAlbumsOutput struct {
	Body struct {
		Albums []AlbumResponse `json:"albums"`
	}
}

// ListTracksOutput wraps the track list for Huma.
type ListTracksOutput struct {
	Body struct {
		Tracks []domain.Track `json:"tracks"`
	}
}

func (s *Server) handleListGames(ctx context.Context, _ *struct{}) (*ListGamesOutput, error) {
	if s.deps.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not configured")
	}
	games, err := s.deps.Catalog.ListGames(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}
	out := &ListGamesOutput{}
	out.Body.Games = games
	if out.Body.Games == nil {
		out.Body.Games = []*domain.Game{}
	}
	return out, nil
}

func (s *Server) handleGetGame(ctx context.Context, input *GameIDInput) (*GameOutput, error) {
	if s.deps.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not configured")
	}
	game, err := s.deps.Catalog.GetGame(ctx, input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &GameOutput{Body: game}, nil
}

func (s *Server) handleDeleteGame(ctx context.Context, input *GameIDInput) (*struct{}, error) {
	if s.deps.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not configured")
	}
	if err := s.deps.Catalog.DeleteGame(ctx, input.ID); err != nil {
		return nil, toHTTPError(err)
	}

	if s.deps.Indexer != nil {
		if err := s.deps.Indexer.RemoveGame(ctx, input.ID); err != nil {
			s.logger.Warn("failed to remove game from search index",
				slog.Int64("game_id", input.ID),
				slog.Any("error", err))
		}
	}
	if s.deps.SSE != nil {
		s.deps.SSE.Emit(sse.NewGameDeletedEvent(input.ID))
	}
	return nil, nil
}

func (s *Server) handleListAlbums(ctx context.Context, input *GameIDInput) (*ListAlbumsOutput, error) {
	if s.deps.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not configured")
	}
	// 404 for unknown games rather than an empty list.
	if _, err := s.deps.Catalog.GetGame(ctx, input.ID); err != nil {
		return nil, toHTTPError(err)
	}
	albums, err := s.deps.Catalog.ListAlbums(ctx, input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &ListAlbumsOutput{}
	out.Body.Albums = make([]AlbumResponse, 0, len(albums))
	for _, a := range albums {
		out.Body.Albums = append(out.Body.Albums, AlbumResponse{
			Album:     a,
			MediaPath: fmt.Sprintf("/media/%d/%d", a.GameID, a.ID),
		})
	}
	return out, nil
}

func (s *Server) handleListTracks(ctx context.Context, input *AlbumIDInput) (*ListTracksOutput, error) {
	if s.deps.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not configured")
	}
	tracks, err := s.deps.Catalog.ListTracks(ctx, input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	out := &ListTracksOutput{}
	out.Body.Tracks = tracks
	if out.Body.Tracks == nil {
		out.Body.Tracks = []domain.Track{}
	}
	return out, nil
}

