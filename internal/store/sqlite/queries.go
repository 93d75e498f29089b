package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
)

// gameColumns is the ordered list of columns selected in game queries.
// Must match the scan order in scanGame.
const gameColumns = `id, name, slug, summary, release_date, rating,
	cover_image_id, cover_blurhash, complete, created_at`

// scanGame scans a sql.Row (or sql.Rows via its Scan method) into a domain.Game.
func scanGame(scanner interface{ Scan(dest ...any) error }) (*domain.Game, error) {
	var g domain.Game

	var (
		summary       sql.NullString
		releaseDate   sql.NullString
		coverImageID  sql.NullString
		coverBlurhash sql.NullString
		complete      int
		createdAt     string
	)

	err := scanner.Scan(
		&g.ID,
		&g.Name,
		&g.Slug,
		&summary,
		&releaseDate,
		&g.Rating,
		&coverImageID,
		&coverBlurhash,
		&complete,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	g.Summary = summary.String
	g.CoverImageID = coverImageID.String
	g.CoverBlurhash = coverBlurhash.String
	g.Complete = complete == 1

	g.ReleaseDate, err = parseNullableTime(releaseDate)
	if err != nil {
		return nil, err
	}
	g.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGame returns a game with its genres and companies.
// Returns errors.ErrNotFound if the game does not exist.
func (s *Store) GetGame(ctx context.Context, gameID int64) (*domain.Game, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, gameID)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("game %d not found", gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", gameID, err)
	}

	if g.Genres, err = s.gameGenres(ctx, gameID); err != nil {
		return nil, err
	}
	if g.Companies, err = s.gameCompanies(ctx, gameID); err != nil {
		return nil, err
	}
	return g, nil
}

// ListGames returns complete games ordered by name. Dependent rows are not loaded.
func (s *Store) ListGames(ctx context.Context) ([]*domain.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE complete = 1 ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []*domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *Store) gameGenres(ctx context.Context, gameID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM game_genres WHERE game_id = ? ORDER BY position`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		genres = append(genres, name)
	}
	return genres, rows.Err()
}

func (s *Store) gameCompanies(ctx context.Context, gameID int64) ([]domain.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.slug, gc.developer, gc.publisher
		FROM game_companies gc
		JOIN companies c ON c.id = gc.company_id
		WHERE gc.game_id = ?
		ORDER BY c.name`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		var (
			c         domain.Company
			slug      sql.NullString
			developer int
			publisher int
		)
		if err := rows.Scan(&c.ID, &c.Name, &slug, &developer, &publisher); err != nil {
			return nil, err
		}
		c.Slug = slug.String
		c.Developer = developer == 1
		c.Publisher = publisher == 1
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// ListAlbums returns the albums of a game, main album first.
func (s *Store) ListAlbums(ctx context.Context, gameID int64) ([]domain.Album, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, name, media_id, media_type, created_at
		FROM albums WHERE game_id = ?
		ORDER BY is_main DESC, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list albums of game %d: %w", gameID, err)
	}
	defer rows.Close()

	var albums []domain.Album
	for rows.Next() {
		var (
			a         domain.Album
			mediaType string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.GameID, &a.Name, &a.MediaID, &mediaType, &createdAt); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		a.MediaType = domain.MediaType(mediaType)
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// ListTracks returns the tracks of an album in play order.
// Returns errors.ErrNotFound if the album does not exist.
func (s *Store) ListTracks(ctx context.Context, albumID int64) ([]domain.Track, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM albums WHERE id = ?`, albumID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("album %d not found", albumID)
	}
	if err != nil {
		return nil, fmt.Errorf("get album %d: %w", albumID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, title, slug, duration, source_ref
		FROM tracks WHERE album_id = ?
		ORDER BY position`, albumID)
	if err != nil {
		return nil, fmt.Errorf("list tracks of album %d: %w", albumID, err)
	}
	defer rows.Close()

	var tracks []domain.Track
	for rows.Next() {
		var (
			t         domain.Track
			sourceRef sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Slug, &t.Duration, &sourceRef); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		t.SourceRef = sourceRef.String
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TrackHit is a track joined with its game for indexing.
type TrackHit struct {
	GameID   int64
	GameName string
	AlbumID  int64
	Track    domain.Track
}

// ListGameTracks returns every track of a game across its albums.
func (s *Store) ListGameTracks(ctx context.Context, gameID int64) ([]TrackHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, t.album_id, t.position, t.title, t.slug, t.duration, t.source_ref
		FROM tracks t
		JOIN games g ON g.id = t.game_id
		WHERE t.game_id = ?
		ORDER BY t.album_id, t.position`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list tracks of game %d: %w", gameID, err)
	}
	defer rows.Close()

	var hits []TrackHit
	for rows.Next() {
		var (
			h         TrackHit
			sourceRef sql.NullString
		)
		if err := rows.Scan(&h.GameID, &h.GameName, &h.AlbumID,
			&h.Track.ID, &h.Track.Title, &h.Track.Slug, &h.Track.Duration, &sourceRef); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		h.Track.SourceRef = sourceRef.String
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
