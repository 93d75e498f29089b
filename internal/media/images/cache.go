package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/retry"
)

// DefaultBaseURL is the IGDB image CDN.
const DefaultBaseURL = "https://images.igdb.com/igdb/image/upload"

// BlurhashQuality is the size fetched to compute cover placeholders.
const BlurhashQuality = "cover_small"

// maxImageBytes caps the size of a downloaded image.
const maxImageBytes = 20 << 20

// Qualities are the IGDB size presets accepted in image paths.
var Qualities = map[string]bool{
	"micro":           true,
	"thumb":           true,
	"cover_small":     true,
	"cover_big":       true,
	"logo_med":        true,
	"screenshot_med":  true,
	"screenshot_big":  true,
	"screenshot_huge": true,
	"720p":            true,
	"1080p":           true,
}

var imageIDPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// Config configures the upstream side of the cache.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   retry.Config
}

// Cache downloads IGDB images once and serves them from Storage afterwards.
type Cache struct {
	cfg     Config
	client  *http.Client
	storage *Storage
	group   singleflight.Group
	logger  *slog.Logger
}

// New creates an image cache on top of storage.
func New(cfg Config, storage *Storage, logger *slog.Logger) *Cache {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Attempts(3)
	}
	return &Cache{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		storage: storage,
		logger:  logger,
	}
}

// ValidateRef checks a quality preset and image id before they reach a URL or a cache key.
func ValidateRef(quality, imageID string) error {
	if !Qualities[quality] {
		return errors.Validationf("unknown image quality %q", quality)
	}
	if !imageIDPattern.MatchString(imageID) {
		return errors.Validationf("invalid image id %q", imageID)
	}
	return nil
}

func cacheKey(quality, imageID string) string {
	return quality + "/" + imageID
}

// DownloadImage returns the original bytes of an IGDB image, fetching and
// caching them on first use. Concurrent requests for one image share a fetch.
func (c *Cache) DownloadImage(ctx context.Context, quality, imageID string) ([]byte, error) {
	if err := ValidateRef(quality, imageID); err != nil {
		return nil, err
	}
	key := cacheKey(quality, imageID)

	if data, err := c.storage.Get(key); err == nil {
		return data, nil
	} else if !errors.Is(err, ErrNotCached) {
		c.logger.Warn("image cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := c.fetch(ctx, quality, imageID)
		if err != nil {
			return nil, err
		}
		if err := c.storage.Save(key, data); err != nil {
			c.logger.Warn("image cache write failed", slog.String("key", key), slog.Any("error", err))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Image returns an image scaled to width (0 keeps the original). Resized
// variants are cached next to the original.
func (c *Cache) Image(ctx context.Context, quality, imageID string, width int) ([]byte, error) {
	if width < 0 || width > MaxWidth {
		return nil, errors.Validationf("width must be between 0 and %d", MaxWidth)
	}

	data, err := c.DownloadImage(ctx, quality, imageID)
	if err != nil || width == 0 {
		return data, err
	}

	key := cacheKey(quality, imageID) + "@" + strconv.Itoa(width)
	if resized, err := c.storage.Get(key); err == nil {
		return resized, nil
	}

	resized, err := Resize(data, width)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "resize image")
	}
	if err := c.storage.Save(key, resized); err != nil {
		c.logger.Warn("image cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return resized, nil
}

// CoverBlurhash downloads the small cover rendition and returns its BlurHash.
func (c *Cache) CoverBlurhash(ctx context.Context, imageID string) (string, error) {
	data, err := c.DownloadImage(ctx, BlurhashQuality, imageID)
	if err != nil {
		return "", err
	}
	return Blurhash(data)
}

func (c *Cache) fetch(ctx context.Context, quality, imageID string) ([]byte, error) {
	url := fmt.Sprintf("%s/t_%s/%s.jpg", c.cfg.BaseURL, quality, imageID)

	data, err := retry.Do(ctx, c.cfg.Retry, retry.Transient, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &retry.StatusError{StatusCode: resp.StatusCode, URL: url}
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	})
	if err != nil {
		var statusErr *retry.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, errors.NotFoundf("image %s not found", imageID)
		}
		c.logger.Error("image download failed",
			slog.String("quality", quality),
			slog.String("image_id", imageID),
			slog.Any("error", err),
		)
		return nil, errors.Upstreamf("download image %s", imageID).WithCause(err)
	}

	c.logger.Debug("image downloaded",
		slog.String("quality", quality),
		slog.String("image_id", imageID),
		slog.Int("bytes", len(data)),
	)
	return data, nil
}
