package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/retry"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type upstream struct {
	*httptest.Server
	calls atomic.Int32
	paths sync.Map
}

func newUpstream(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *upstream {
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.paths.Store(r.URL.Path, true)
		handler(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

func newTestCache(t *testing.T, baseURL string) *Cache {
	t.Helper()
	return New(Config{
		BaseURL: baseURL,
		Retry:   retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1},
	}, setupTestStorage(t), logger.Discard())
}

func TestDownloadImage_CachesAfterFirstFetch(t *testing.T) {
	img := testPNG(t, 40, 20)
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(img)
	})
	c := newTestCache(t, u.URL)

	data, err := c.DownloadImage(context.Background(), "cover_big", "co1abc")
	require.NoError(t, err)
	assert.Equal(t, img, data)

	data, err = c.DownloadImage(context.Background(), "cover_big", "co1abc")
	require.NoError(t, err)
	assert.Equal(t, img, data)

	assert.Equal(t, int32(1), u.calls.Load())
	_, ok := u.paths.Load("/t_cover_big/co1abc.jpg")
	assert.True(t, ok)
}

func TestDownloadImage_Validation(t *testing.T) {
	c := newTestCache(t, "http://unused.invalid")

	_, err := c.DownloadImage(context.Background(), "t_huge", "co1abc")
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = c.DownloadImage(context.Background(), "thumb", "../etc/passwd")
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestDownloadImage_NotFound(t *testing.T) {
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	c := newTestCache(t, u.URL)

	_, err := c.DownloadImage(context.Background(), "thumb", "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Equal(t, int32(1), u.calls.Load())
}

func TestDownloadImage_RetriesServerErrors(t *testing.T) {
	img := testPNG(t, 8, 8)
	var n atomic.Int32
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		if n.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(img)
	})
	c := newTestCache(t, u.URL)

	data, err := c.DownloadImage(context.Background(), "thumb", "abc")
	require.NoError(t, err)
	assert.Equal(t, img, data)
	assert.Equal(t, int32(3), u.calls.Load())
}

func TestDownloadImage_UpstreamFailure(t *testing.T) {
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestCache(t, u.URL)

	_, err := c.DownloadImage(context.Background(), "thumb", "abc")
	assert.ErrorIs(t, err, errors.ErrUpstream)
	assert.Equal(t, int32(3), u.calls.Load())
}

func TestImage_ResizesAndCachesVariant(t *testing.T) {
	img := testPNG(t, 200, 100)
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(img)
	})
	c := newTestCache(t, u.URL)

	data, err := c.Image(context.Background(), "screenshot_big", "sc1", 50)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
	assert.True(t, c.storage.Exists("screenshot_big/sc1@50"))

	_, err = c.Image(context.Background(), "screenshot_big", "sc1", MaxWidth+1)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestCoverBlurhash(t *testing.T) {
	img := testPNG(t, 90, 128)
	u := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(img)
	})
	c := newTestCache(t, u.URL)

	hash, err := c.CoverBlurhash(context.Background(), "co2xyz")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	_, ok := u.paths.Load("/t_cover_small/co2xyz.jpg")
	assert.True(t, ok)
}

func TestResize(t *testing.T) {
	src := testPNG(t, 300, 120)

	out, err := Resize(src, 100)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 40, cfg.Height)

	same, err := Resize(src, 300)
	require.NoError(t, err)
	assert.Equal(t, src, same)

	_, err = Resize(src, 0)
	assert.Error(t, err)

	_, err = Resize([]byte("not an image"), 10)
	assert.Error(t, err)
}

func TestBlurhash(t *testing.T) {
	hash, err := Blurhash(testPNG(t, 256, 128))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	small, err := Blurhash(testPNG(t, 16, 16))
	require.NoError(t, err)
	assert.NotEmpty(t, small)

	_, err = Blurhash([]byte("garbage"))
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 160))
	thumb := thumbnail(img, 64)
	assert.Equal(t, 64, thumb.Bounds().Dx())
	assert.Equal(t, 16, thumb.Bounds().Dy())

	tall := thumbnail(image.NewRGBA(image.Rect(0, 0, 10, 1000)), 64)
	assert.Equal(t, 1, tall.Bounds().Dx())
	assert.Equal(t, 64, tall.Bounds().Dy())
}
