package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/store/sqlite"
)

func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	index, err := NewSearchIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func date(year int) *time.Time {
	d := time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

func chronoTrigger() *domain.Game {
	return &domain.Game{
		ID:          1942,
		Name:        "Chrono Trigger",
		Summary:     "Travel through time to save the world.",
		ReleaseDate: date(1995),
		Genres:      []string{"Role-playing (RPG)"},
		Companies:   []domain.Company{{ID: 70, Name: "Square"}},
	}
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSearchIndex_RebuildsOnVersionChange(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexDocument(GameToSearchDocument(chronoTrigger())))
	require.NoError(t, index.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.version"), []byte("0"), 0o644))

	index, err = NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSearchIndex_ReopensExisting(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexDocument(GameToSearchDocument(chronoTrigger())))
	require.NoError(t, index.Close())

	index, err = NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestGameToSearchDocument(t *testing.T) {
	doc := GameToSearchDocument(chronoTrigger())

	assert.Equal(t, "game:1942", doc.ID)
	assert.Equal(t, DocTypeGame, doc.Type)
	assert.Equal(t, 1995, doc.ReleaseYear)
	assert.Equal(t, "Square", doc.Companies)
	assert.Equal(t, []string{"role-playing-rpg"}, doc.Genres)

	m := doc.ToMap()
	assert.Equal(t, float64(1942), m["game_id"])
	assert.NotContains(t, m, "position")
	assert.NotContains(t, m, "duration")
}

func TestTrackToSearchDocument(t *testing.T) {
	doc := TrackToSearchDocument(1942, "Chrono Trigger", 3, domain.Track{ID: 0, Title: "Prologue", Duration: 61})

	assert.Equal(t, "track:3:0", doc.ID)
	m := doc.ToMap()
	assert.Equal(t, float64(0), m["position"])
	assert.Equal(t, float64(3), m["album_id"])
	assert.Equal(t, "Chrono Trigger", m["game_name"])
}

func indexFixtures(t *testing.T, index *SearchIndex) {
	t.Helper()
	docs := []*SearchDocument{
		GameToSearchDocument(chronoTrigger()),
		GameToSearchDocument(&domain.Game{ID: 7, Name: "Final Fantasy VI", ReleaseDate: date(1994)}),
		GameToSearchDocument(&domain.Game{ID: 8, Name: "Okami", ReleaseDate: date(2006)}),
		TrackToSearchDocument(1942, "Chrono Trigger", 1, domain.Track{ID: 0, Title: "Corridors of Time", Duration: 180}),
		TrackToSearchDocument(1942, "Chrono Trigger", 1, domain.Track{ID: 1, Title: "Wind Scene", Duration: 140}),
		TrackToSearchDocument(7, "Final Fantasy VI", 2, domain.Track{ID: 0, Title: "Terra's Theme", Duration: 200}),
	}
	require.NoError(t, index.IndexDocuments(docs))
}

func TestSearch_ByName(t *testing.T) {
	index := setupTestIndex(t)
	indexFixtures(t, index)

	res, err := index.Search(context.Background(), SearchParams{Query: "corridors", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "track:1:0", res.Hits[0].ID)
	assert.Equal(t, DocTypeTrack, res.Hits[0].Type)
	assert.Equal(t, "Chrono Trigger", res.Hits[0].GameName)
	assert.Equal(t, int64(1942), res.Hits[0].GameID)
	assert.InDelta(t, 180, res.Hits[0].Duration, 1e-9)
}

func TestSearch_GameNameMatchesTracks(t *testing.T) {
	index := setupTestIndex(t)
	indexFixtures(t, index)

	res, err := index.Search(context.Background(), SearchParams{Query: "chrono", Types: []string{"track"}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
	for _, h := range res.Hits {
		assert.Equal(t, DocTypeTrack, h.Type)
	}
}

func TestSearch_Fuzzy(t *testing.T) {
	index := setupTestIndex(t)
	indexFixtures(t, index)

	res, err := index.Search(context.Background(), SearchParams{Query: "okamy", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "game:8", res.Hits[0].ID)
}

func TestSearch_YearRangeAndFacets(t *testing.T) {
	index := setupTestIndex(t)
	indexFixtures(t, index)

	res, err := index.Search(context.Background(), SearchParams{MinYear: 1990, MaxYear: 1999, Limit: 10, SortBy: "year", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "game:7", res.Hits[0].ID)
	assert.Equal(t, "game:1942", res.Hits[1].ID)
	assert.Equal(t, 1994, res.Hits[0].ReleaseYear)

	all, err := index.Search(context.Background(), SearchParams{Limit: 10})
	require.NoError(t, err)
	counts := map[string]int{}
	for _, f := range all.Types {
		counts[f.Value] = f.Count
	}
	assert.Equal(t, map[string]int{"game": 3, "track": 3}, counts)
}

func TestSearch_GameFilterAndGenre(t *testing.T) {
	index := setupTestIndex(t)
	indexFixtures(t, index)

	res, err := index.Search(context.Background(), SearchParams{GameID: 1942, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)

	res, err = index.Search(context.Background(), SearchParams{Genre: "role-playing-rpg", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "game:1942", res.Hits[0].ID)
}

func TestDeleteGame(t *testing.T) {
	index := setupTestIndex(t)
	indexFixtures(t, index)

	require.NoError(t, index.DeleteGame(context.Background(), 1942))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestRebuild(t *testing.T) {
	index := setupTestIndex(t)
	indexFixtures(t, index)

	require.NoError(t, index.Rebuild())
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

type fakeSource struct {
	games  map[int64]*domain.Game
	tracks map[int64][]sqlite.TrackHit
}

func (f *fakeSource) GetGame(_ context.Context, id int64) (*domain.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, errors.NotFoundf("game %d not found", id)
	}
	return g, nil
}

func (f *fakeSource) ListGames(context.Context) ([]*domain.Game, error) {
	var out []*domain.Game
	for _, g := range f.games {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeSource) ListGameTracks(_ context.Context, id int64) ([]sqlite.TrackHit, error) {
	return f.tracks[id], nil
}

func TestIndexer(t *testing.T) {
	index, err := NewSearchIndex(Options{})
	require.NoError(t, err)
	defer index.Close()

	src := &fakeSource{
		games: map[int64]*domain.Game{1942: chronoTrigger()},
		tracks: map[int64][]sqlite.TrackHit{1942: {
			{GameID: 1942, GameName: "Chrono Trigger", AlbumID: 4, Track: domain.Track{ID: 0, Title: "Prologue"}},
			{GameID: 1942, GameName: "Chrono Trigger", AlbumID: 4, Track: domain.Track{ID: 1, Title: "Epilogue"}},
		}},
	}
	ix := NewIndexer(index, src, logger.Discard())
	ctx := context.Background()

	require.NoError(t, ix.ReindexIfEmpty(ctx))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	// A rebuilt album replaces the old track documents.
	src.tracks[1942] = []sqlite.TrackHit{
		{GameID: 1942, GameName: "Chrono Trigger", AlbumID: 5, Track: domain.Track{ID: 0, Title: "Prologue"}},
	}
	require.NoError(t, ix.IndexGame(ctx, 1942))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	require.NoError(t, ix.RemoveGame(ctx, 1942))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	err = ix.IndexGame(ctx, 99)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
