package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/vbonduro/mystuff/internal/metrics"
	"github.com/vbonduro/mystuff/internal/service"
)

// HealthChecker is satisfied by any dependency that exposes a Ping method.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Health  HealthChecker
	// CORSAllowedOrigins is a comma-separated list of allowed origins.
	CORSAllowedOrigins string
	// IsDevelopment relaxes security headers and reports internal errors to
	// clients verbatim.
	IsDevelopment bool
	// RequestTimeout bounds every handler, analysis included.
	RequestTimeout time.Duration
	// RateLimit is the number of requests allowed per IP per minute.
	RateLimit int
}

type Server struct {
	service *service.JournalService
	opts    Options
	logger  *slog.Logger
	router  *chi.Mux
}

func NewServer(svc *service.JournalService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 100
	}
	s := &Server{
		service: svc,
		opts:    opts,
		logger:  opts.Logger,
	}
	s.router = s.newRouter()
	s.registerRoutes()
	return s
}

// newRouter wires the middleware stack, outermost first.
func (s *Server) newRouter() *chi.Mux {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:",
		IsDevelopment:         s.opts.IsDevelopment,
	})

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		requestLogger(s.logger),
		observeRequests(s.opts.Metrics),
		middleware.RealIP,
		httprate.LimitByIP(s.opts.RateLimit, time.Minute),
		corsMiddleware(s.opts.CORSAllowedOrigins),
		requestBodyLimit(maxPhotoSize+1<<20),
		middleware.Timeout(s.opts.RequestTimeout),
		sec.Handler,
	)
	return r
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", s.handleListEntries)
		r.Post("/", s.handleCreateEntry)
		r.Post("/delete", s.handleDeleteEntries)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetEntry)
			r.Patch("/", s.handleUpdateCaption)
			r.Delete("/", s.handleDeleteEntry)
			r.Get("/photo", s.handleGetPhoto)
			r.Get("/items", s.handleGetEntryItems)
			r.Put("/items", s.handlePutEntryItems)
			r.Delete("/items", s.handleDeleteEntryItems)
			r.Get("/items.pdf", s.handleEntryItemsPDF)
			r.Post("/analysis", s.handleAnalyze)
		})
	})
	r.Get("/export.pdf", s.handleCollectionPDF)

	r.Route("/items", func(r chi.Router) {
		r.Get("/", s.handleListPrices)
		r.Post("/", s.handleAddPrice)
		r.Delete("/", s.handleClearPrices)
		r.Post("/delete", s.handleDeletePrices)
		r.Post("/generate", s.handleGeneratePrices)
		r.Put("/{id}", s.handleUpdatePrice)
	})
	r.Get("/items.pdf", s.handlePriceListPDF)

	r.Get("/settings/apikey", s.handleGetAPIKey)
	r.Put("/settings/apikey", s.handlePutAPIKey)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer returns an *http.Server for s with timeouts sized for photo
// uploads and analysis calls.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        s,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   s.opts.RequestTimeout + 30*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := s.HTTPServer(addr)
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != http.ErrServerClosed {
		return err
	}
	return nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			resp = healthResponse{Status: "degraded", Database: "unreachable"}
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
