package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aresapp/ares-server/internal/domain"
	domainerrors "github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/metadata/igdb"
	"github.com/aresapp/ares-server/internal/validation"
)

func (s *Server) registerYouTubeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "matchSoundtrack",
		Method:      http.MethodGet,
		Path:        "/api/v1/youtube/match",
		Summary:     "Preview soundtrack candidates",
		Description: "Runs the video matcher for a game name and returns the ranked videos and playlists without building anything",
		Tags:        []string{"YouTube"},
	}, s.handleMatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "videoChapters",
		Method:      http.MethodGet,
		Path:        "/api/v1/youtube/chapters/{videoId}",
		Summary:     "Preview chapters of a video",
		Description: "Extracts chapters from the video markers, description or comments",
		Tags:        []string{"YouTube"},
	}, s.handleVideoChapters)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchIGDB",
		Method:      http.MethodGet,
		Path:        "/api/v1/igdb/search",
		Summary:     "Search IGDB games",
		Description: "Fuzzy-scored IGDB matches for a name. A trailing '(YYYY)' narrows to that release year.",
		Tags:        []string{"Metadata"},
	}, s.handleSearchIGDB)
}

// MatchInput names the game to match.
type MatchInput struct {
	Name string `query:"name" minLength:"1" maxLength:"200" required:"true" doc:"Game name"`
	Year int    `query:"year" minimum:"0" maximum:"2100" doc:"Release year, 0 if unknown"`
}

// MatchOutput wraps the candidates for Huma.
type MatchOutput struct {
	Body domain.MatchResult
}

// VideoChaptersInput identifies a video.
type VideoChaptersInput struct {
	VideoID string `path:"videoId" minLength:"11" maxLength:"11" doc:"YouTube video ID"`
}

// VideoChaptersOutput wraps the chapters for Huma.
type VideoChaptersOutput struct {
	Body struct {
		VideoID  string           `json:"videoId"`
		Chapters []domain.Chapter `json:"chapters"`
	}
}

// SearchIGDBInput names the game to look up.
type SearchIGDBInput struct {
	Name string `query:"name" minLength:"1" maxLength:"200" required:"true" doc:"Game name"`
}

// SearchIGDBOutput wraps the matches for Huma.
type SearchIGDBOutput struct {
	Body struct {
		Matches []igdb.Match `json:"matches"`
	}
}

func (s *Server) handleMatch(ctx context.Context, input *MatchInput) (*MatchOutput, error) {
	if s.deps.Matcher == nil {
		return nil, huma.Error503ServiceUnavailable("matcher not configured")
	}
	result, err := s.deps.Matcher.Match(ctx, strings.TrimSpace(input.Name), input.Year)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if result.Videos == nil {
		result.Videos = []domain.VideoCandidate{}
	}
	if result.Playlists == nil {
		result.Playlists = []domain.PlaylistCandidate{}
	}
	return &MatchOutput{Body: result}, nil
}

func (s *Server) handleVideoChapters(ctx context.Context, input *VideoChaptersInput) (*VideoChaptersOutput, error) {
	if s.deps.Chapters == nil {
		return nil, huma.Error503ServiceUnavailable("chapter extractor not configured")
	}
	if !validation.IsVideoID(input.VideoID) {
		return nil, toHTTPError(domainerrors.Validationf("invalid video id %q", input.VideoID))
	}

	chs, err := s.deps.Chapters.VideoChapters(ctx, input.VideoID, 0)
	if err != nil {
		return nil, toHTTPError(err)
	}
	out := &VideoChaptersOutput{}
	out.Body.VideoID = input.VideoID
	out.Body.Chapters = chs
	return out, nil
}

func (s *Server) handleSearchIGDB(ctx context.Context, input *SearchIGDBInput) (*SearchIGDBOutput, error) {
	if s.deps.Metadata == nil {
		return nil, huma.Error503ServiceUnavailable("metadata provider not configured")
	}
	matches, err := s.deps.Metadata.Search(ctx, strings.TrimSpace(input.Name))
	if err != nil && !errors.Is(err, igdb.ErrNotFound) {
		return nil, toHTTPError(domainerrors.Wrap(err, domainerrors.CodeUpstream, "igdb search failed"))
	}
	out := &SearchIGDBOutput{}
	out.Body.Matches = matches
	if out.Body.Matches == nil {
		out.Body.Matches = []igdb.Match{}
	}
	return out, nil
}
