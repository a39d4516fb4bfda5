// Package server exposes a viewer.Controller over HTTP as JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/placemap/internal/cache"
	"github.com/sells-group/placemap/internal/viewer"
)

const shutdownTimeout = 10 * time.Second

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	RateLimit      float64 // overlay fetches per second
	RateBurst      int
}

// Server routes map requests to a Controller.
type Server struct {
	ctrl    *viewer.Controller
	cache   cache.Cache
	limiter *rate.Limiter
	router  chi.Router
}

// New builds the router. c may be nil; it is only used for /health stats.
func New(ctrl *viewer.Controller, c cache.Cache, opts Options) *Server {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst < 1 {
		burst = 1
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		ctrl:    ctrl,
		cache:   c,
		limiter: rate.NewLimiter(limit, burst),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth())
	r.Get("/places", s.handleListPlaces())
	r.Get("/places/reference", s.handleReferencePlace())
	r.Get("/categories", s.handleCategories())
	r.Get("/layers", s.handleLayers())
	r.Get("/legend", s.handleLegend())
	r.Get("/state", s.handleState())

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/places/{id}/trade-area", s.handleToggleTradeArea())
		r.Post("/places/{id}/home-zipcodes", s.handleToggleHomeZipcodes())
	})

	r.Delete("/layers", s.handleClearLayers())
	r.Delete("/layers/{id}", s.handleRemoveLayer())
	r.Post("/layers/{id}/visibility", s.handleToggleVisibility())

	r.Put("/filters", s.handleSetFilters())
	r.Put("/selection", s.handleSetSelection())
	r.Put("/levels", s.handleSetAllLevels())
	r.Put("/levels/{level}", s.handleSetLevel())

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on port until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}
