package youtube

import (
	"context"
	"encoding/json/v2"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/retry"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "load fixture %s", name)
	return data
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
		Retry:             retry.Config{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1},
	}, logger.Discard())
	t.Cleanup(client.Close)
	return client
}

func TestSearch(t *testing.T) {
	fixture := loadFixture(t, "search.json")
	var gotQuery string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/youtubei/v1/search", r.URL.Path)
		assert.Contains(t, r.Header.Get("Cookie"), "SOCS=")
		assert.Equal(t, "1", r.Header.Get("X-Youtube-Client-Name"))

		var body struct {
			Query string `json:"query"`
		}
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))
		gotQuery = body.Query

		_, _ = w.Write(fixture)
	})

	items, err := client.Search(context.Background(), "hollow knight game full ost")
	require.NoError(t, err)
	assert.Equal(t, "hollow knight game full ost", gotQuery)

	require.Len(t, items, 5)
	assert.Equal(t, SearchItem{Kind: KindVideo, ID: "aaaaaaaaaaa", Title: "Hollow Knight Full OST", Duration: "2:31:07"}, items[0])
	assert.Equal(t, KindOther, items[1].Kind)
	assert.Equal(t, SearchItem{Kind: KindPlaylist, ID: "PLhollow", Title: "Hollow Knight Soundtrack"}, items[2])
	assert.Equal(t, "3:12", items[3].Duration)
	assert.Equal(t, SearchItem{Kind: KindPlaylist, ID: "PLlockup", Title: "Silksong and Hollow Knight"}, items[4])
}

func TestSearch_RetriesServerErrors(t *testing.T) {
	fixture := loadFixture(t, "search.json")
	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(fixture)
	})

	items, err := client.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.NotEmpty(t, items)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Search(context.Background(), "q")
	require.Error(t, err)

	var statusErr *retry.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatchPage(t *testing.T) {
	fixture := loadFixture(t, "watch.html")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/watch", r.URL.Path)
		assert.Equal(t, "celeste0000", r.URL.Query().Get("v"))
		_, _ = w.Write(fixture)
	})

	data, err := client.WatchPage(context.Background(), "celeste0000")
	require.NoError(t, err)

	require.Len(t, data.Markers, 2)
	assert.Equal(t, Marker{Title: "Forsaken City", StartMillis: 125500}, data.Markers[1])

	require.NotNil(t, data.Description)
	assert.True(t, strings.HasPrefix(data.Description.Content, "Tracklist:\n0:00 First Steps"))
	require.Len(t, data.Description.Links, 2)
	assert.Equal(t, TimeLink{StartIndex: 28, Length: 4, StartSeconds: 190}, data.Description.Links[1])

	assert.Equal(t, "COMMENTS_TOKEN", data.CommentsToken)
}

func TestWatchPage_NoInitialData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>consent wall</html>"))
	})

	_, err := client.WatchPage(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoInitialData)
}

func TestComments(t *testing.T) {
	legacy := loadFixture(t, "next_legacy.json")
	entity := loadFixture(t, "next_entity.json")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtubei/v1/next", r.URL.Path)
		var body struct {
			Continuation string `json:"continuation"`
		}
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))

		switch body.Continuation {
		case "COMMENTS_TOKEN":
			_, _ = w.Write(legacy)
		case "PAGE2":
			_, _ = w.Write(entity)
		default:
			t.Errorf("unexpected continuation %q", body.Continuation)
		}
	})

	var comments []Comment
	err := client.Comments(context.Background(), "vid", "COMMENTS_TOKEN", func(c Comment) bool {
		comments = append(comments, c)
		return true
	})
	require.NoError(t, err)

	require.Len(t, comments, 3)
	assert.Equal(t, "c1", comments[0].ID)

	runs := comments[1].Runs
	require.Len(t, runs, 5)
	assert.Nil(t, runs[0].StartSeconds)
	require.NotNil(t, runs[3].StartSeconds)
	assert.Equal(t, 135.0, *runs[3].StartSeconds)

	require.NotNil(t, comments[2].Attributed)
	assert.Equal(t, "e1", comments[2].ID)
	assert.Len(t, comments[2].Attributed.Links, 2)
}

func TestComments_StopsWhenCallbackDeclines(t *testing.T) {
	legacy := loadFixture(t, "next_legacy.json")
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(legacy)
	})

	seen := 0
	err := client.Comments(context.Background(), "vid", "COMMENTS_TOKEN", func(Comment) bool {
		seen++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPlaylistPageAndBrowse(t *testing.T) {
	page := loadFixture(t, "playlist.html")
	browse := loadFixture(t, "browse.json")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/playlist":
			assert.Equal(t, "PLhades", r.URL.Query().Get("list"))
			_, _ = w.Write(page)
		case "/youtubei/v1/browse":
			data, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(data), "visitorData")
			assert.Contains(t, string(data), "2.20240101.00.00")
			assert.Contains(t, string(data), `"continuation":"BROWSE1"`)
			_, _ = w.Write(browse)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	pl, err := client.PlaylistPage(context.Background(), "PLhades")
	require.NoError(t, err)
	assert.Equal(t, "Hades Original Soundtrack", pl.Title)
	assert.Equal(t, "BROWSE1", pl.Continuation)
	require.Len(t, pl.Entries, 2)
	assert.Equal(t, PlaylistEntry{VideoID: "v1aaaaaaaaa", Title: "No Escape", Duration: "2:00"}, pl.Entries[0])
	assert.Equal(t, "1:30", pl.Entries[1].Duration)

	next, err := client.Browse(context.Background(), pl, pl.Continuation)
	require.NoError(t, err)
	require.Len(t, next.Entries, 1)
	assert.Equal(t, "The Painful Way", next.Entries[0].Title)
	assert.Empty(t, next.Continuation)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1};rest`, `{"a":1}`},
		{`{"a":"}"}x`, `{"a":"}"}`},
		{`{"a":"\"}"}`, `{"a":"\"}"}`},
		{`{"a":"\\"}tail`, `{"a":"\\"}`},
		{`{"a":{"b":{}}}`, `{"a":{"b":{}}}`},
		{`{"open":`, ``},
		{`[1]`, ``},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(extractJSON([]byte(tt.in))), tt.in)
	}
}

func TestPageTitleFallsBackToTitleTag(t *testing.T) {
	page := []byte(`<html><head><title>Doom Eternal OST - YouTube</title></head></html>`)
	assert.Equal(t, "Doom Eternal OST", pageTitle(page))
}

func TestParseDuration(t *testing.T) {
	tests := map[string]float64{
		"2:00":    120,
		"1:02:03": 3723,
		"45":      45,
		" 0:07 ":  7,
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "LIVE", "1::2", "-1:00"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}
