package igdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/retry"
)

func newTestClient(t *testing.T, tokens TokenSource, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(Config{
		BaseURL:  server.URL,
		ClientID: "client",
		Retry:    retry.Config{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1},
	}, tokens, logger.Discard())
	t.Cleanup(c.Close)
	return c
}

func unix(year int) int64 {
	return time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC).Unix()
}

func TestSearch_RanksByRatio(t *testing.T) {
	var body string
	c := newTestClient(t, StaticToken("tok"), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "client", r.Header.Get("Client-ID"))
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		fmt.Fprint(w, `[
			{"id": 30, "name": "Okami HD"},
			{"id": 20, "name": "Ōkami"},
			{"id": 10, "name": "Okamiden DS"}
		]`)
	})

	matches, err := c.Search(context.Background(), "Ōkami")
	require.NoError(t, err)

	assert.Contains(t, body, `search "okami";`)
	assert.NotContains(t, body, "where")
	require.Len(t, matches, 3)
	assert.Equal(t, Match{ID: 20, Name: "Ōkami", Score: 100}, matches[0])
	assert.Greater(t, matches[1].Score, matches[2].Score)
}

func TestSearch_YearMatchScores101(t *testing.T) {
	var body string
	c := newTestClient(t, StaticToken("tok"), func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		fmt.Fprintf(w, `[
			{"id": 1, "name": "Doom", "first_release_date": %d},
			{"id": 2, "name": "Doom", "first_release_date": %d},
			{"id": 3, "name": "Doom II", "first_release_date": %d}
		]`, unix(1993), unix(2016), unix(2016))
	})

	matches, err := c.Search(context.Background(), "DOOM (2016)")
	require.NoError(t, err)

	assert.Contains(t, body, `search "doom";`)
	assert.Contains(t, body, "first_release_date >=")
	assert.Equal(t, int64(2), matches[0].ID)
	assert.Equal(t, YearMatchScore, matches[0].Score)
	assert.Equal(t, 100, matches[1].Score, "only the best 2016 game gets the bonus")
}

func TestPost_RefreshesRejectedTokenOnce(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		n := tokenCalls.Add(1)
		fmt.Fprintf(w, `{"access_token":"tok%d","expires_in":3600,"token_type":"bearer"}`, n)
	}))
	defer tokenServer.Close()

	tokens := NewTwitchTokens(tokenServer.Client(), tokenServer.URL, "client", "secret", logger.Discard())

	c := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `[{"id": 7, "name": "Celeste", "cover": {"image_id": "co1"}}]`)
	})

	game, err := c.FetchDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "co1", game.Cover.ImageID)
	assert.Equal(t, int32(2), tokenCalls.Load())

	// The fresh token is cached.
	_, err = c.FetchDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenCalls.Load())
}

func TestFetchDetails_NotFound(t *testing.T) {
	c := newTestClient(t, StaticToken("tok"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	_, err := c.FetchDetails(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestQuery_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, StaticToken("tok"), func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"id": 1, "name": "Nintendo", "slug": "nintendo"}]`)
	})

	companies, err := c.FetchCompanies(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, companies, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, StaticToken("tok"), func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `syntax error`)
	})

	_, err := c.Search(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrBadRequest))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCompanies_Query(t *testing.T) {
	var body string
	c := newTestClient(t, StaticToken("tok"), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		fmt.Fprint(w, `[]`)
	})

	_, err := c.FetchCompanies(context.Background(), []int64{5, 9})
	require.NoError(t, err)
	assert.Contains(t, body, "where id = (5,9); limit 3;")

	companies, err := c.FetchCompanies(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, companies)
}

func TestToDomain(t *testing.T) {
	g := &Game{
		ID:               7,
		Name:             "Hollow Knight",
		FirstReleaseDate: unix(2017),
		Cover:            &Image{ImageID: "co93"},
		Genres:           []Named{{Name: "Platform"}, {Name: "Adventure"}},
		InvolvedCompanies: []InvolvedCompany{
			{Company: 1, Developer: true, Publisher: true},
		},
	}
	got := g.ToDomain([]Company{{ID: 1, Name: "Team Cherry", Slug: "team-cherry"}})

	assert.Equal(t, "hollow-knight", got.Slug)
	assert.Equal(t, 2017, got.ReleaseDate.Year())
	assert.Equal(t, "co93", got.CoverImageID)
	assert.Equal(t, []string{"Platform", "Adventure"}, got.Genres)
	require.Len(t, got.Companies, 1)
	assert.True(t, got.Companies[0].Developer)
	assert.Equal(t, 2017, g.ReleaseYear())
	assert.Equal(t, []int64{1}, g.CompanyIDs())
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"say \"hi\" \\o/"`, quote(`say "hi" \o/`))
	assert.False(t, strings.Contains(quote("a;b"), `\;`))
}
