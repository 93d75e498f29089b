package api

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/http/response"
	"github.com/aresapp/ares-server/internal/media/images"
	"github.com/aresapp/ares-server/internal/sse"
)

// imageCacheControl lets clients keep images for 180 days; IGDB image ids
// never change content.
const imageCacheControl = "public, max-age=15552000"

// imageCategories are the IGDB image kinds exposed under /images.
var imageCategories = map[string]bool{
	"covers":      true,
	"artworks":    true,
	"screenshots": true,
}

func init() {
	_ = mime.AddExtensionType(".mpd", "application/dash+xml")
	_ = mime.AddExtensionType(".webm", "audio/webm")
}

// registerStaticRoutes mounts the handlers huma does not describe: the
// event stream, images and media files.
func (s *Server) registerStaticRoutes() {
	if s.deps.SSE != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.deps.SSE, s.logger).ServeHTTP)
	}
	s.router.Get("/images/{category}/{quality}/{hash}", s.handleImage)

	if s.deps.MediaDir != "" {
		files := http.StripPrefix("/media/", http.FileServer(mediaDir{http.Dir(s.deps.MediaDir)}))
		s.router.Get("/media/*", files.ServeHTTP)
		s.router.Head("/media/*", files.ServeHTTP)
	}
}

// handleImage serves an IGDB image from the cache, optionally resized with ?w=.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Images == nil {
		response.Error(w, http.StatusServiceUnavailable, string(domainerrors.CodeInternal), "images not configured", s.logger)
		return
	}

	category := chi.URLParam(r, "category")
	quality := chi.URLParam(r, "quality")
	hash := strings.TrimSuffix(chi.URLParam(r, "hash"), ".jpg")

	if !imageCategories[category] {
		response.NotFound(w, "unknown image category", s.logger)
		return
	}
	if err := images.ValidateRef(quality, hash); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	width := 0
	if raw := r.URL.Query().Get("w"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > images.MaxWidth {
			response.BadRequest(w, fmt.Sprintf("w must be an integer between 0 and %d", images.MaxWidth), s.logger)
			return
		}
		width = n
	}

	data, err := s.deps.Images.Image(r.Context(), quality, hash, width)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", imageCacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// mediaDir hides directory listings of the media tree.
type mediaDir struct {
	fs http.FileSystem
}

func (d mediaDir) Open(name string) (http.File, error) {
	f, err := d.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
