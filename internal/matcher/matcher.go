// Package matcher ranks YouTube videos and playlists as soundtrack sources
// for a game.
package matcher

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aresapp/ares-server/internal/cache"
	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/youtube"
)

const (
	// PageSize is how many results of each query are scored.
	PageSize = 10
	// TopN is how many candidates of each kind are returned.
	TopN = 5
)

// QuerySuffixes are appended to the game name, one search per suffix.
var QuerySuffixes = []string{
	" game full ost",
	" game full album",
	" game full soundtrack",
	" game complete soundtrack",
	" original game soundtrack",
}

// Source is the subset of the YouTube client the matcher needs.
type Source interface {
	Search(ctx context.Context, query string) ([]youtube.SearchItem, error)
	PlaylistPage(ctx context.Context, listID string) (*youtube.Playlist, error)
}

// Matcher scores search results across several queries.
type Matcher struct {
	yt     Source
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates a matcher. The cache is used for playlist expansion.
func New(yt Source, c *cache.Cache, logger *slog.Logger) *Matcher {
	return &Matcher{yt: yt, cache: c, logger: logger}
}

type scored struct {
	id       string
	title    string
	duration string
	score    int
	order    int
}

// Match searches for the game's soundtrack and returns the top videos and
// playlists. A query failure is logged and does not affect the others; no
// candidate at all is an InfoExtraction error.
func (m *Matcher) Match(ctx context.Context, name string, releaseYear int) (domain.MatchResult, error) {
	base := strings.TrimSpace(name)
	if releaseYear > 0 {
		base += " " + strconv.Itoa(releaseYear)
	}

	pages := m.searchAll(ctx, base)

	videos := map[string]*scored{}
	playlists := map[string]*scored{}
	order := 0
	for _, items := range pages {
		items = items[:min(PageSize, len(items))]
		n := len(items)
		for i, item := range items {
			var table map[string]*scored
			switch item.Kind {
			case youtube.KindVideo:
				table = videos
			case youtube.KindPlaylist:
				table = playlists
			default:
				continue
			}
			if s, ok := table[item.ID]; ok {
				s.score += n - i
				continue
			}
			table[item.ID] = &scored{id: item.ID, title: item.Title, duration: item.Duration, score: n - i, order: order}
			order++
		}
	}

	result := domain.MatchResult{
		Videos:    make([]domain.VideoCandidate, 0, TopN),
		Playlists: make([]domain.PlaylistCandidate, 0, TopN),
	}
	for _, v := range rank(videos) {
		if len(result.Videos) == TopN {
			break
		}
		result.Videos = append(result.Videos, domain.VideoCandidate{ID: v.id, Title: v.title, Duration: v.duration, Score: v.score})
	}
	for _, p := range rank(playlists) {
		if len(result.Playlists) == TopN {
			break
		}
		candidate, err := m.expand(ctx, p)
		if err != nil {
			m.logger.Warn("playlist expansion failed", "playlist_id", p.id, "error", err)
			continue
		}
		result.Playlists = append(result.Playlists, candidate)
	}

	if result.Empty() {
		return result, errors.InfoExtraction(name, "no match")
	}

	m.logger.Info("media matched",
		"name", name,
		"videos", len(result.Videos),
		"playlists", len(result.Playlists),
	)
	return result, nil
}

// searchAll runs every query concurrently and returns the successful pages
// in suffix order.
func (m *Matcher) searchAll(ctx context.Context, base string) [][]youtube.SearchItem {
	pages := make([][]youtube.SearchItem, len(QuerySuffixes))

	var wg sync.WaitGroup
	for i, suffix := range QuerySuffixes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			query := base + suffix
			items, err := m.yt.Search(ctx, query)
			if err != nil {
				m.logger.Warn("search query failed", "query", query, "error", err)
				return
			}
			pages[i] = items
		}()
	}
	wg.Wait()

	return pages
}

type expandedPlaylist struct {
	Title  string                  `json:"title"`
	Videos []domain.VideoCandidate `json:"videos"`
}

// expand fetches the playlist's member videos once per playlist ID.
func (m *Matcher) expand(ctx context.Context, p *scored) (domain.PlaylistCandidate, error) {
	load := func(ctx context.Context) (expandedPlaylist, error) {
		pl, err := m.yt.PlaylistPage(ctx, p.id)
		if err != nil {
			return expandedPlaylist{}, err
		}
		out := expandedPlaylist{Title: pl.Title, Videos: make([]domain.VideoCandidate, 0, len(pl.Entries))}
		for _, e := range pl.Entries {
			out.Videos = append(out.Videos, domain.VideoCandidate{ID: e.VideoID, Title: e.Title, Duration: e.Duration})
		}
		return out, nil
	}

	var (
		exp expandedPlaylist
		err error
	)
	if m.cache != nil {
		exp, err = cache.GetOrLoad(ctx, m.cache, m.cache.Key("playlist", p.id), load)
	} else {
		exp, err = load(ctx)
	}
	if err != nil {
		return domain.PlaylistCandidate{}, err
	}

	title := exp.Title
	if title == "" {
		title = p.title
	}
	return domain.PlaylistCandidate{ID: p.id, Title: title, Score: p.score, Videos: exp.Videos}, nil
}

// rank sorts by score descending; ties keep first-seen order.
func rank(table map[string]*scored) []*scored {
	out := make([]*scored, 0, len(table))
	for _, s := range table {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
	return out
}
