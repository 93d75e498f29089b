// Package igdb is the game metadata client backed by the IGDB API.
package igdb

import (
	"cmp"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aresapp/ares-server/internal/normalize"
	"github.com/aresapp/ares-server/internal/ratelimit"
	"github.com/aresapp/ares-server/internal/retry"
)

const (
	// DefaultBaseURL is the IGDB v4 API root.
	DefaultBaseURL = "https://api.igdb.com/v4"

	// IGDB allows 4 requests per second.
	defaultRPS   = 4.0
	defaultBurst = 4

	defaultTimeout = 10 * time.Second

	// YearMatchScore outranks any fuzzy score when the release year matches.
	YearMatchScore = 101

	searchLimit = 10
)

// Config holds client settings.
type Config struct {
	BaseURL  string
	ClientID string
	Timeout  time.Duration
	Retry    retry.Config
}

// Client is a rate-limited IGDB client.
type Client struct {
	http     *http.Client
	baseURL  string
	clientID string
	tokens   TokenSource
	limiter  *ratelimit.KeyedRateLimiter
	retry    retry.Config
	logger   *slog.Logger
}

// New creates a client using tokens for authorization.
func New(cfg Config, tokens TokenSource, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.HTTP
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		clientID: cfg.ClientID,
		tokens:   tokens,
		limiter:  ratelimit.New(defaultRPS, defaultBurst),
		retry:    cfg.Retry,
		logger:   logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Search finds games matching name. A "(YYYY)" suffix restricts results to
// that release year, and the best-ranked game released that year is scored
// YearMatchScore. Results are ordered by score descending, then ID.
func (c *Client) Search(ctx context.Context, name string) ([]Match, error) {
	year, clean := normalize.DetectYear(name)
	clean = normalize.Fold(clean)

	query := fmt.Sprintf("search %s; fields name,first_release_date; limit %d;", quote(clean), searchLimit)
	if year != 0 {
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
		end := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC).Unix()
		query += fmt.Sprintf(" where first_release_date >= %d & first_release_date <= %d;", start, end)
	}

	c.logger.Info("searching igdb", "name", clean, "year", year)

	var games []Game
	if err := c.query(ctx, "search", "games", query, &games); err != nil {
		return nil, err
	}

	matches := make([]Match, len(games))
	for i, g := range games {
		matches[i] = Match{ID: g.ID, Name: g.Name, Score: normalize.Ratio(normalize.Fold(g.Name), clean)}
	}
	sortMatches(matches)

	if year != 0 {
		for i := range matches {
			if releaseYear(games, matches[i].ID) == year {
				matches[i].Score = YearMatchScore
				sortMatches(matches)
				break
			}
		}
	}
	return matches, nil
}

func sortMatches(m []Match) {
	slices.SortStableFunc(m, func(a, b Match) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func releaseYear(games []Game, id int64) int {
	for i := range games {
		if games[i].ID == id {
			return games[i].ReleaseYear()
		}
	}
	return 0
}

// FetchDetails returns the full record of a game.
func (c *Client) FetchDetails(ctx context.Context, id int64) (*Game, error) {
	query := `fields name, slug, summary, first_release_date, rating,
		cover.image_id, cover.width, cover.height,
		artworks.image_id, screenshots.image_id,
		genres.name, genres.slug, themes.name, themes.slug, keywords.name, keywords.slug,
		collection.name, collection.slug,
		involved_companies.company, involved_companies.developer, involved_companies.publisher,
		involved_companies.porting, involved_companies.supporting;
		where id = ` + strconv.FormatInt(id, 10) + ";"

	var games []Game
	if err := c.query(ctx, "details", "games", query, &games); err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, wrapError("details", "games", ErrNotFound)
	}
	return &games[0], nil
}

// FetchCompanies returns the companies with the given IDs.
func (c *Client) FetchCompanies(ctx context.Context, ids []int64) ([]Company, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	query := fmt.Sprintf("fields name, slug, description, logo.image_id; where id = (%s); limit %d;",
		strings.Join(parts, ","), len(ids)+1)

	var companies []Company
	if err := c.query(ctx, "companies", "companies", query, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (c *Client) query(ctx context.Context, op, endpoint, body string, dst any) error {
	data, err := retry.Do(ctx, c.retry, retryable, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, endpoint, body)
	})
	if err != nil {
		c.logger.Error("igdb request failed", "op", op, "endpoint", endpoint, "error", err)
		return wrapError(op, endpoint, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return wrapError(op, endpoint, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer) {
		return true
	}
	return retry.Transient(err)
}

// post sends one Apicalypse query. A rejected token is dropped and the
// request replayed once with a fresh one.
func (c *Client) post(ctx context.Context, endpoint, body string) ([]byte, error) {
	data, err := c.postOnce(ctx, endpoint, body)
	if errors.Is(err, ErrUnauthorized) {
		c.logger.Warn("igdb token rejected, refreshing")
		data, err = c.postOnce(ctx, endpoint, body)
	}
	return data, err
}

func (c *Client) postOnce(ctx context.Context, endpoint, body string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, "igdb"); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)

	c.logger.Debug("igdb request", "endpoint", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return data, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		c.tokens.Invalidate(token)
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, data)
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
}

// quote renders s as an Apicalypse string literal.
func quote(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}
