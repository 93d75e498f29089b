// Package api provides the HTTP API server and handlers for Ares.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/metadata/igdb"
	"github.com/aresapp/ares-server/internal/ratelimit"
	"github.com/aresapp/ares-server/internal/search"
	"github.com/aresapp/ares-server/internal/sse"
	"github.com/aresapp/ares-server/internal/tasks"
	"github.com/aresapp/ares-server/internal/validation"
	"github.com/aresapp/ares-server/internal/wizard"
)

// Catalog is the read side of the catalog plus game deletion.
type Catalog interface {
	GetGame(ctx context.Context, gameID int64) (*domain.Game, error)
	ListGames(ctx context.Context) ([]*domain.Game, error)
	ListAlbums(ctx context.Context, gameID int64) ([]domain.Album, error)
	ListTracks(ctx context.Context, albumID int64) ([]domain.Track, error)
	DeleteGame(ctx context.Context, gameID int64) error
	Ping(ctx context.Context) error
}

// Searcher queries the catalog search index.
type Searcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
	DocumentCount() (uint64, error)
}

// Indexer keeps the search index in step with catalog deletes.
type Indexer interface {
	RemoveGame(ctx context.Context, gameID int64) error
}

// Images serves cached IGDB images.
type Images interface {
	Image(ctx context.Context, quality, imageID string, width int) ([]byte, error)
}

// GameSearcher looks up games on the metadata provider.
type GameSearcher interface {
	Search(ctx context.Context, name string) ([]igdb.Match, error)
}

// Matcher previews soundtrack candidates.
type Matcher interface {
	Match(ctx context.Context, name string, releaseYear int) (domain.MatchResult, error)
}

// Chapters previews the chapters of one video.
type Chapters interface {
	VideoChapters(ctx context.Context, videoID string, gameID int64) ([]domain.Chapter, error)
}

// WizardRunner runs the pipeline for one game.
type WizardRunner interface {
	Execute(ctx context.Context, req wizard.Request) (*wizard.Result, error)
}

// BatchRunner runs the pipeline over many games.
type BatchRunner interface {
	Run(ctx context.Context, taskID string, names []string) (*domain.Report, error)
}

// Deps are the collaborators of the HTTP server. Any of them may be nil in
// tests; the routes that need a missing collaborator answer 503.
type Deps struct {
	Catalog  Catalog
	Search   Searcher
	Indexer  Indexer
	Images   Images
	Metadata GameSearcher
	Matcher  Matcher
	Chapters Chapters
	Wizard   WizardRunner
	Batch    BatchRunner
	Reports  *wizard.Reports
	Tracker  *tasks.Tracker
	SSE      *sse.Manager

	// MediaDir is served under /media/.
	MediaDir string
	// WizardLimiter throttles wizard submissions per client IP.
	WizardLimiter *ratelimit.KeyedRateLimiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	deps      Deps
	router    *chi.Mux
	api       huma.API
	validator *validation.Validator
	logger    *slog.Logger

	// Background wizard runs outlive their request but not the server.
	runCtx    context.Context
	cancelRun context.CancelFunc
	runs      sync.WaitGroup
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	runCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		deps:      deps,
		router:    router,
		validator: validation.New(),
		logger:    logger,
		runCtx:    runCtx,
		cancelRun: cancel,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Ares API", "1.0.0")
	humaConfig.Info.Description = "Builds a video game soundtrack catalog from YouTube uploads"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	RegisterErrorHandler()
	s.api = humachi.New(router, humaConfig)

	s.registerHealthRoutes()
	s.registerWizardRoutes()
	s.registerTaskRoutes()
	s.registerCatalogRoutes()
	s.registerSearchRoutes()
	s.registerYouTubeRoutes()
	s.registerStaticRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mostly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown cancels running wizard jobs and waits for them to record their
// outcome, or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelRun()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// background runs fn detached from the request, under the server lifetime.
func (s *Server) background(fn func(ctx context.Context)) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		fn(s.runCtx)
	}()
}
