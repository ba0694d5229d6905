// Package api serves graphs, layouts and renders over HTTP.
//
// Graphs live in a [store.Store] for the lifetime of the process. Every
// heavy operation goes through a shared [pipeline.Runner], so layouts and
// renders are cached and identical concurrent layout requests are computed
// once.
//
// Errors are returned as JSON objects with a machine-readable code:
//
//	{"code": "SAMPLE_BUDGET_EXCEEDED", "error": "max samples 30 exceeds the 12 samples in the graph"}
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/chris-a-talbot/sparg-viz/pkg/config"
	"github.com/chris-a-talbot/sparg-viz/pkg/pipeline"
	"github.com/chris-a-talbot/sparg-viz/pkg/store"
)

const shutdownTimeout = 10 * time.Second

// Options configures a [Server].
type Options struct {
	Store  store.Store
	Runner *pipeline.Runner
	Logger *log.Logger
	// Config supplies the server, layout and simulation sections. The
	// zero value means [config.Default].
	Config *config.Config
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Server is the HTTP API.
type Server struct {
	store    store.Store
	runner   *pipeline.Runner
	logger   *log.Logger
	cfg      config.Config
	metrics  http.Handler
	validate *validator.Validate
	limiter  *clientLimiter
}

// New creates a server. A nil store, runner or logger gets a fresh
// in-memory store, an uncached runner or the default logger.
func New(opts Options) *Server {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	s := &Server{
		store:    opts.Store,
		runner:   opts.Runner,
		logger:   opts.Logger,
		cfg:      cfg,
		metrics:  opts.Metrics,
		validate: newValidator(),
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.Server.RateLimit, cfg.Server.Burst)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/simulate", s.handleSimulate)
		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleUpload)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleMetadata)
				r.Get("/metadata", s.handleMetadata)
				r.Delete("/", s.handleDelete)
				r.Get("/download", s.handleDownload)
				r.Get("/data", s.handleData)
				r.Get("/layout", s.handleLayout)
				r.Get("/render.{format}", s.handleRender)
				r.Post("/infer-locations", s.handleInfer)
			})
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
