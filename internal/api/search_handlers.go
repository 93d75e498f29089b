package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aresapp/ares-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search catalog",
		Description: "Full-text search across games and tracks",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the catalog.
type SearchInput struct {
	Query     string `query:"q" minLength:"1" maxLength:"200" required:"true" doc:"Search query"`
	Types     string `query:"types" maxLength:"50" doc:"Comma-separated types to search (game,track). Omit for all."`
	GameID    int64  `query:"game" minimum:"0" doc:"Restrict to one game"`
	Genre     string `query:"genre" maxLength:"100" doc:"Genre slug (games only)"`
	MinYear   int    `query:"min_year" minimum:"0" doc:"Earliest release year"`
	MaxYear   int    `query:"max_year" minimum:"0" doc:"Latest release year"`
	Limit     int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset    int    `query:"offset" minimum:"0" doc:"Pagination offset (default 0)"`
	Sort      string `query:"sort" enum:"relevance,name,year,duration" doc:"Sort field"`
	SortOrder string `query:"order" enum:"asc,desc" doc:"Sort order"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.deps.Search == nil {
		return nil, huma.Error503ServiceUnavailable("search not configured")
	}

	params := search.DefaultSearchParams()
	params.Query = strings.TrimSpace(input.Query)
	params.GameID = input.GameID
	params.Genre = input.Genre
	params.MinYear = input.MinYear
	params.MaxYear = input.MaxYear
	params.Offset = input.Offset
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.SortOrder != "" {
		params.SortOrder = input.SortOrder
	}
	for _, t := range strings.Split(input.Types, ",") {
		switch t = strings.TrimSpace(t); t {
		case string(search.DocTypeGame), string(search.DocTypeTrack):
			params.Types = append(params.Types, t)
		case "":
		default:
			return nil, huma.Error400BadRequest("unknown search type " + t)
		}
	}

	result, err := s.deps.Search.Search(ctx, params)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &SearchOutput{Body: result}, nil
}
