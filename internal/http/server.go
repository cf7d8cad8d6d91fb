package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/boxoffice-viewer/internal/config"
	"github.com/Clark-Hu/boxoffice-viewer/internal/detail"
	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/metrics"
	"github.com/Clark-Hu/boxoffice-viewer/internal/ranking"
	"github.com/Clark-Hu/boxoffice-viewer/internal/reviews"
)

// Ranker runs ranking searches.
type Ranker interface {
	Search(ctx context.Context, q ranking.Query) (ranking.Result, error)
}

// DetailLoader resolves movies and opens detail sessions.
type DetailLoader interface {
	Resolve(ctx context.Context, id string) (domain.Movie, error)
	Open(ctx context.Context, id string) (*detail.Session, error)
}

// HealthChecker reports whether the cache backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	rankings Ranker
	details  DetailLoader
	reviews  reviews.Store
	health   HealthChecker
	logger   logrus.FieldLogger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes. health may be
// nil when the cache lives in memory.
func New(cfg config.Config, rankings Ranker, details DetailLoader, reviewStore reviews.Store, health HealthChecker, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	s := &Server{
		cfg:      cfg,
		rankings: rankings,
		details:  details,
		reviews:  reviewStore,
		health:   health,
		logger:   logger.WithField("component", "http"),
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metrics.Handler())
	s.router.Get("/rankings", s.handleRankings)
	s.router.Route("/movies/{id}", func(r chi.Router) {
		r.Get("/", s.handleMovieDetail)
		r.Get("/reviews", s.handleListReviews)
		r.Post("/reviews", s.handleCreateReview)
	})
	s.router.Route("/reviews/{reviewID}", func(r chi.Router) {
		r.Put("/", s.handleUpdateReview)
		r.Delete("/", s.handleDeleteReview)
	})
}

// ServeHTTP lets the server be mounted or exercised directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start boots the HTTP server and blocks until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
