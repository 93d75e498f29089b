package providers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/api"
	"github.com/aresapp/ares-server/internal/config"
	"github.com/aresapp/ares-server/internal/extractor"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/matcher"
	"github.com/aresapp/ares-server/internal/media/images"
	"github.com/aresapp/ares-server/internal/ratelimit"
	"github.com/aresapp/ares-server/internal/search"
	"github.com/aresapp/ares-server/internal/tasks"
	"github.com/aresapp/ares-server/internal/wizard"
)

// WizardLimiterHandle wraps the per-IP wizard limiter. Limiter is nil when
// the limit is disabled.
type WizardLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *WizardLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

// ProvideWizardLimiter provides the wizard submission limiter.
func ProvideWizardLimiter(i do.Injector) (*WizardLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Server.WizardRPS <= 0 {
		return &WizardLimiterHandle{}, nil
	}
	return &WizardLimiterHandle{Limiter: ratelimit.New(cfg.Server.WizardRPS, cfg.Server.WizardBurst)}, nil
}

// APIServerHandle wraps the API handler. Shutdown cancels background wizard
// runs and waits for them to record their outcome.
type APIServerHandle struct {
	*api.Server
}

// Shutdown implements do.Shutdownable.
func (h *APIServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideAPIServer provides the HTTP handler with every route wired.
func ProvideAPIServer(i do.Injector) (*APIServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	limiter := do.MustInvoke[*WizardLimiterHandle](i)

	handler := api.NewServer(api.Deps{
		Catalog:       storeHandle.Store,
		Search:        indexHandle.SearchIndex,
		Indexer:       do.MustInvoke[*search.Indexer](i),
		Images:        do.MustInvoke[*images.Cache](i),
		Metadata:      do.MustInvoke[*IGDBClientHandle](i).Client,
		Matcher:       do.MustInvoke[*matcher.Matcher](i),
		Chapters:      do.MustInvoke[*extractor.Extractor](i),
		Wizard:        do.MustInvoke[*wizard.Wizard](i),
		Batch:         do.MustInvoke[*wizard.Batch](i),
		Reports:       do.MustInvoke[*wizard.Reports](i),
		Tracker:       do.MustInvoke[*tasks.Tracker](i),
		SSE:           sseHandle.Manager,
		MediaDir:      cfg.MediaDir(),
		WizardLimiter: limiter.Limiter,
	}, log.Logger)

	return &APIServerHandle{Server: handler}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*APIServerHandle](i)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
