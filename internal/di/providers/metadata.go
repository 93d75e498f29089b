package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/cache"
	"github.com/aresapp/ares-server/internal/config"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/metadata/igdb"
	"github.com/aresapp/ares-server/internal/youtube"
)

// CacheHandle wraps the tiered lookup cache with shutdown capability.
type CacheHandle struct {
	*cache.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the memory cache, backed by Redis when configured.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	c := cache.New(context.Background(), cache.Config{
		RedisURL:   cfg.Cache.RedisURL,
		TTL:        cfg.Cache.TTL,
		MaxEntries: 10000,
	}, log.Logger)

	log.Info("Lookup cache initialized", "redis", c.Redis())

	return &CacheHandle{Cache: c}, nil
}

// YouTubeClientHandle stops the client's rate limiter on shutdown.
type YouTubeClientHandle struct {
	*youtube.Client
}

// Shutdown implements do.Shutdownable.
func (h *YouTubeClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideYouTubeClient provides the YouTube web client.
func ProvideYouTubeClient(i do.Injector) (*YouTubeClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := youtube.New(youtube.Config{
		Timeout:           cfg.YouTube.Timeout,
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
	}, log.Logger)
	return &YouTubeClientHandle{Client: client}, nil
}

// IGDBClientHandle stops the client's rate limiter on shutdown.
type IGDBClientHandle struct {
	*igdb.Client
}

// Shutdown implements do.Shutdownable.
func (h *IGDBClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideIGDBClient provides the IGDB client authorized through Twitch
// client credentials.
func ProvideIGDBClient(i do.Injector) (*IGDBClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := cfg.RequireIGDB(); err != nil {
		return nil, err
	}

	tokens := igdb.NewTwitchTokens(&http.Client{Timeout: cfg.YouTube.Timeout}, "", cfg.IGDB.ClientID, cfg.IGDB.ClientSecret, log.Logger)

	client := igdb.New(igdb.Config{ClientID: cfg.IGDB.ClientID}, tokens, log.Logger)
	log.Info("IGDB client ready", "client_id", cfg.IGDB.ClientID)

	return &IGDBClientHandle{Client: client}, nil
}
