package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
)

func sampleGame() *domain.Game {
	release := time.Date(1995, 3, 11, 0, 0, 0, 0, time.UTC)
	return &domain.Game{
		ID:           1942,
		Name:         "Chrono Trigger",
		Summary:      "A time travel RPG.",
		ReleaseDate:  &release,
		Rating:       93.5,
		CoverImageID: "co1abc",
		Genres:       []string{"Role-playing (RPG)", "Adventure"},
		Companies: []domain.Company{
			{ID: 70, Name: "Square", Slug: "square", Developer: true, Publisher: true},
			{ID: 12, Name: "Nintendo", Publisher: true},
		},
	}
}

func TestCheckExistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.CheckExistence(ctx, 1942)
	require.NoError(t, err)
	assert.Equal(t, domain.ExistenceAbsent, got)

	require.NoError(t, s.PersistGame(ctx, sampleGame()))
	got, err = s.CheckExistence(ctx, 1942)
	require.NoError(t, err)
	assert.Equal(t, domain.ExistenceComplete, got)

	_, err = s.db.Exec(`UPDATE games SET complete = 0 WHERE id = 1942`)
	require.NoError(t, err)
	got, err = s.CheckExistence(ctx, 1942)
	require.NoError(t, err)
	assert.Equal(t, domain.ExistencePartial, got)
}

func TestPersistGame_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PersistGame(ctx, sampleGame()))

	g, err := s.GetGame(ctx, 1942)
	require.NoError(t, err)
	assert.Equal(t, "Chrono Trigger", g.Name)
	assert.Equal(t, "chrono-trigger", g.Slug)
	assert.Equal(t, "A time travel RPG.", g.Summary)
	require.NotNil(t, g.ReleaseDate)
	assert.Equal(t, 1995, g.ReleaseDate.Year())
	assert.InDelta(t, 93.5, g.Rating, 1e-9)
	assert.Equal(t, "co1abc", g.CoverImageID)
	assert.True(t, g.Complete)
	assert.Equal(t, []string{"Role-playing (RPG)", "Adventure"}, g.Genres)

	require.Len(t, g.Companies, 2)
	assert.Equal(t, "Nintendo", g.Companies[0].Name)
	assert.False(t, g.Companies[0].Developer)
	assert.True(t, g.Companies[0].Publisher)
	assert.Equal(t, "Square", g.Companies[1].Name)
	assert.True(t, g.Companies[1].Developer)
}

func TestPersistGame_ReplacesPartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := sampleGame()
	require.NoError(t, s.PersistGame(ctx, g))
	_, err := s.db.Exec(`UPDATE games SET complete = 0 WHERE id = 1942`)
	require.NoError(t, err)

	g.Genres = []string{"Adventure"}
	g.Companies = g.Companies[:1]
	g.CoverBlurhash = "LKO2?U%2Tw=w]~RBVZRi};RPxuwH"
	require.NoError(t, s.PersistGame(ctx, g))

	got, err := s.GetGame(ctx, 1942)
	require.NoError(t, err)
	assert.True(t, got.Complete)
	assert.Equal(t, []string{"Adventure"}, got.Genres)
	assert.Len(t, got.Companies, 1)
	assert.Equal(t, g.CoverBlurhash, got.CoverBlurhash)
}

func TestPersistGame_InvalidID(t *testing.T) {
	s := newTestStore(t)
	err := s.PersistGame(context.Background(), &domain.Game{Name: "Nothing"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestGetGame_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetGame(context.Background(), 7)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func sampleTracks() []domain.Track {
	return []domain.Track{
		{ID: 0, Title: "Prologue", Slug: "prologue", Duration: 60.5, SourceRef: "1942/1/0/manifest.mpd"},
		{ID: 1, Title: "", Duration: 120},
		{ID: 2, Title: "Corridors of Time", Slug: "corridors-of-time", Duration: 90.25},
	}
}

func TestAlbumsAndTracks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PersistGame(ctx, sampleGame()))

	next, err := s.NextAlbumID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	_, ok, err := s.CheckAlbumExists(ctx, 1942)
	require.NoError(t, err)
	assert.False(t, ok)

	ref := domain.MediaReference{MediaID: "PLabc", MediaType: domain.MediaPlaylist}
	require.NoError(t, s.PersistTracks(ctx, 1942, next, sampleTracks(), ref))

	albumID, ok, err := s.CheckAlbumExists(ctx, 1942)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), albumID)

	next, err = s.NextAlbumID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)

	albums, err := s.ListAlbums(ctx, 1942)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, MainAlbumName, albums[0].Name)
	assert.Equal(t, "PLabc", albums[0].MediaID)
	assert.Equal(t, domain.MediaPlaylist, albums[0].MediaType)

	tracks, err := s.ListTracks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "Prologue", tracks[0].Title)
	assert.Equal(t, "1942/1/0/manifest.mpd", tracks[0].SourceRef)
	assert.Equal(t, UntitledTrack, tracks[1].Title)
	assert.Equal(t, "untitled", tracks[1].Slug)
	assert.InDelta(t, 90.25, tracks[2].Duration, 1e-9)

	hits, err := s.ListGameTracks(ctx, 1942)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "Chrono Trigger", hits[2].GameName)
	assert.Equal(t, "Corridors of Time", hits[2].Track.Title)

	var url string
	require.NoError(t, s.db.QueryRow(`SELECT source_url FROM albums WHERE id = 1`).Scan(&url))
	assert.Equal(t, "https://www.youtube.com/playlist?list=PLabc", url)
}

func TestPersistTracks_DuplicateAlbumRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PersistGame(ctx, sampleGame()))

	ref := domain.MediaReference{MediaID: "vid", MediaType: domain.MediaVideo}
	require.NoError(t, s.PersistTracks(ctx, 1942, 1, sampleTracks()[:1], ref))

	err := s.PersistTracks(ctx, 1942, 1, sampleTracks(), ref)
	require.Error(t, err)

	tracks, err := s.ListTracks(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
}

func TestPersistTracks_UnknownGame(t *testing.T) {
	s := newTestStore(t)
	ref := domain.MediaReference{MediaID: "vid", MediaType: domain.MediaVideo}
	err := s.PersistTracks(context.Background(), 99, 1, sampleTracks(), ref)
	require.Error(t, err)
}

func TestListTracks_UnknownAlbum(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ListTracks(context.Background(), 5)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeleteGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PersistGame(ctx, sampleGame()))
	ref := domain.MediaReference{MediaID: "vid", MediaType: domain.MediaVideo}
	require.NoError(t, s.PersistTracks(ctx, 1942, 1, sampleTracks(), ref))

	require.NoError(t, s.DeleteGame(ctx, 1942))

	got, err := s.CheckExistence(ctx, 1942)
	require.NoError(t, err)
	assert.Equal(t, domain.ExistenceAbsent, got)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM game_companies`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM companies`).Scan(&n))
	assert.Equal(t, 2, n, "companies are shared and survive")

	err = s.DeleteGame(ctx, 1942)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestListGames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PersistGame(ctx, sampleGame()))
	require.NoError(t, s.PersistGame(ctx, &domain.Game{ID: 7, Name: "Ape Escape"}))
	require.NoError(t, s.PersistGame(ctx, &domain.Game{ID: 8, Name: "Zelda"}))
	_, err := s.db.Exec(`UPDATE games SET complete = 0 WHERE id = 8`)
	require.NoError(t, err)

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "Ape Escape", games[0].Name)
	assert.Equal(t, "ape-escape", games[0].Slug)
	assert.Equal(t, "Chrono Trigger", games[1].Name)
}
