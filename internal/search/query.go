package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string   // User's search query
	Types []string // Document types to include (empty = all)

	// Filters
	GameID  int64  // Restrict to one game
	Genre   string // Exact genre slug (games only)
	MinYear int
	MaxYear int

	// Pagination
	Limit  int
	Offset int

	// Sorting: "relevance", "name", "year", "duration"
	SortBy    string
	SortOrder string // "asc", "desc"

	Highlight bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		SortBy:    "relevance",
		SortOrder: "desc",
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Types  []FacetCount `json:"types,omitempty"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID          string            `json:"id"`
	Type        DocType           `json:"type"`
	Score       float64           `json:"score"`
	Name        string            `json:"name"`
	GameID      int64             `json:"game_id"`
	GameName    string            `json:"game_name,omitempty"`
	AlbumID     int64             `json:"album_id,omitempty"`
	Position    int               `json:"position,omitempty"`
	Duration    float64           `json:"duration,omitempty"`
	ReleaseYear int               `json:"release_year,omitempty"`
	Highlights  map[string]string `json:"highlights,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)
	req.AddFacet("type", bleve.NewFacetRequest("type", 5))

	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("name")
		req.Highlight.AddField("game_name")
	}

	req.Fields = []string{
		"type", "name", "game_id", "game_name", "album_id", "position", "duration", "release_year",
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}

		if t, ok := hit.Fields["type"].(string); ok {
			h.Type = DocType(t)
		}
		if n, ok := hit.Fields["name"].(string); ok {
			h.Name = n
		}
		if n, ok := hit.Fields["game_name"].(string); ok {
			h.GameName = n
		}
		if v, ok := hit.Fields["game_id"].(float64); ok {
			h.GameID = int64(v)
		}
		if v, ok := hit.Fields["album_id"].(float64); ok {
			h.AlbumID = int64(v)
		}
		if v, ok := hit.Fields["position"].(float64); ok {
			h.Position = int(v)
		}
		if v, ok := hit.Fields["duration"].(float64); ok {
			h.Duration = v
		}
		if v, ok := hit.Fields["release_year"].(float64); ok {
			h.ReleaseYear = int(v)
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	if facet, ok := res.Facets["type"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.Types = append(result.Types, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if params.Query != "" {
		nameMatch := bleve.NewMatchQuery(params.Query)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)

		// Tracks also match on the game they belong to.
		gameMatch := bleve.NewMatchQuery(params.Query)
		gameMatch.SetField("game_name")
		gameMatch.SetBoost(1.0)

		companyMatch := bleve.NewMatchQuery(params.Query)
		companyMatch.SetField("companies")
		companyMatch.SetBoost(0.7)

		fuzzy := bleve.NewFuzzyQuery(params.Query)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("name")
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{nameMatch, gameMatch, companyMatch, fuzzy}

		if len(params.Query) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefix.SetField("name")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if len(params.Types) > 0 {
		typeQueries := make([]query.Query, len(params.Types))
		for i, t := range params.Types {
			tq := bleve.NewTermQuery(t)
			tq.SetField("type")
			typeQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(typeQueries...))
	}

	if params.GameID > 0 {
		queries = append(queries, gameFilter(params.GameID))
	}

	if params.Genre != "" {
		gq := bleve.NewTermQuery(params.Genre)
		gq.SetField("genres")
		queries = append(queries, gq)
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		lo := float64(params.MinYear)
		hi := float64(params.MaxYear)
		if params.MaxYear == 0 {
			hi = 3000
		}
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
		rq.SetField("release_year")
		queries = append(queries, rq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// gameFilter matches every document of one game.
func gameFilter(gameID int64) query.Query {
	v := float64(gameID)
	inclusive := true
	q := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
	q.SetField("game_id")
	return q
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	desc := params.SortOrder == "desc"
	field := func(name string) string {
		if desc {
			return "-" + name
		}
		return name
	}

	switch params.SortBy {
	case "name", "title":
		req.SortBy([]string{field("name")})
	case "year":
		req.SortBy([]string{field("release_year"), "name"})
	case "duration":
		req.SortBy([]string{field("duration")})
	case "position":
		req.SortBy([]string{"album_id", field("position")})
	default:
		req.SortBy([]string{"-_score"})
	}
}
