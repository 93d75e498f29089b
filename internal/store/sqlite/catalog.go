package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/util"
)

// MainAlbumName is the name of the album built by the wizard.
const MainAlbumName = "Original Soundtrack"

// UntitledTrack replaces empty chapter titles when tracks are stored.
const UntitledTrack = "Untitled"

// CheckExistence reports whether a game is absent, only partially written or complete.
func (s *Store) CheckExistence(ctx context.Context, gameID int64) (domain.Existence, error) {
	var complete int
	err := s.db.QueryRowContext(ctx, `SELECT complete FROM games WHERE id = ?`, gameID).Scan(&complete)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ExistenceAbsent, nil
	}
	if err != nil {
		return domain.ExistenceAbsent, fmt.Errorf("check existence of game %d: %w", gameID, err)
	}
	if complete == 1 {
		return domain.ExistenceComplete, nil
	}
	return domain.ExistencePartial, nil
}

// PersistGame writes a game with its genres and companies. The root row is
// written first and flagged complete last, all inside one transaction.
// Re-persisting a partial game replaces its dependent rows.
func (s *Store) PersistGame(ctx context.Context, g *domain.Game) error {
	if g.ID <= 0 {
		return errors.Validationf("game id must be positive, got %d", g.ID)
	}
	slug := g.Slug
	if slug == "" {
		slug = util.SlugifyOr(g.Name, fmt.Sprintf("game-%d", g.ID))
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO games (id, name, slug, summary, release_date, rating,
				cover_image_id, cover_blurhash, complete, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				slug = excluded.slug,
				summary = excluded.summary,
				release_date = excluded.release_date,
				rating = excluded.rating,
				cover_image_id = excluded.cover_image_id,
				cover_blurhash = excluded.cover_blurhash,
				complete = 0`,
			g.ID, g.Name, slug, nullString(g.Summary), nullTimeString(g.ReleaseDate), g.Rating,
			nullString(g.CoverImageID), nullString(g.CoverBlurhash), formatTime(s.now()),
		)
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM game_genres WHERE game_id = ?`, g.ID); err != nil {
			return fmt.Errorf("clear genres: %w", err)
		}
		for i, name := range g.Genres {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO game_genres (game_id, name, position) VALUES (?, ?, ?)`,
				g.ID, name, i,
			); err != nil {
				return fmt.Errorf("insert genre %q: %w", name, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM game_companies WHERE game_id = ?`, g.ID); err != nil {
			return fmt.Errorf("clear companies: %w", err)
		}
		for _, c := range g.Companies {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO companies (id, name, slug) VALUES (?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET name = excluded.name, slug = excluded.slug`,
				c.ID, c.Name, nullString(c.Slug),
			); err != nil {
				return fmt.Errorf("insert company %d: %w", c.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO game_companies (game_id, company_id, developer, publisher)
				VALUES (?, ?, ?, ?)`,
				g.ID, c.ID, boolInt(c.Developer), boolInt(c.Publisher),
			); err != nil {
				return fmt.Errorf("link company %d: %w", c.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE games SET complete = 1 WHERE id = ?`, g.ID); err != nil {
			return fmt.Errorf("finalize game: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist game %d: %w", g.ID, err)
	}

	s.logger.Info("game persisted",
		slog.Int64("game_id", g.ID),
		slog.String("name", g.Name),
		slog.Int("companies", len(g.Companies)),
	)
	return nil
}

// DeleteGame removes a game and everything hanging off it.
// Returns errors.ErrNotFound if the game does not exist.
func (s *Store) DeleteGame(ctx context.Context, gameID int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"tracks", "albums", "game_companies", "game_genres"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE game_id = ?`, gameID); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, gameID)
		if err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.NotFoundf("game %d not found", gameID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("game deleted", slog.Int64("game_id", gameID))
	return nil
}

// NextAlbumID returns one past the highest album id in the catalog.
func (s *Store) NextAlbumID(ctx context.Context) (int64, error) {
	var maxID sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM albums`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("next album id: %w", err)
	}
	if !maxID.Valid {
		return 1, nil
	}
	return maxID.Int64 + 1, nil
}

// CheckAlbumExists returns the id of the game's main album, if any.
func (s *Store) CheckAlbumExists(ctx context.Context, gameID int64) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM albums WHERE game_id = ? AND name = ?`, gameID, MainAlbumName,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("check album of game %d: %w", gameID, err)
	}
	return id, true, nil
}

// PersistTracks stores the main album of a game and its ordered tracks.
func (s *Store) PersistTracks(ctx context.Context, gameID, albumID int64, tracks []domain.Track, source domain.MediaReference) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO albums (id, game_id, name, slug, is_main, media_id, media_type, source_url, created_at)
			VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?)`,
			albumID, gameID, MainAlbumName, util.Slugify(MainAlbumName),
			source.MediaID, string(source.MediaType), SourceURL(source), formatTime(s.now()),
		)
		if err != nil {
			return fmt.Errorf("insert album: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tracks (game_id, album_id, position, title, slug, duration, source_ref)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare track insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range tracks {
			title := t.Title
			if title == "" {
				title = UntitledTrack
			}
			slug := t.Slug
			if slug == "" {
				slug = util.SlugifyOr(title, fmt.Sprintf("track-%d", t.ID))
			}
			if _, err := stmt.ExecContext(ctx,
				gameID, albumID, t.ID, title, slug, t.Duration, nullString(t.SourceRef),
			); err != nil {
				return fmt.Errorf("insert track %d: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist tracks for game %d: %w", gameID, err)
	}

	s.logger.Info("tracks persisted",
		slog.Int64("game_id", gameID),
		slog.Int64("album_id", albumID),
		slog.Int("tracks", len(tracks)),
	)
	return nil
}

// SourceURL is the public page of the media an album was built from.
func SourceURL(ref domain.MediaReference) string {
	if ref.MediaType == domain.MediaPlaylist {
		return "https://www.youtube.com/playlist?list=" + ref.MediaID
	}
	return "https://www.youtube.com/watch?v=" + ref.MediaID
}
