package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ecomdash/internal/amqp"
	"ecomdash/internal/core"
	"ecomdash/internal/log"
	"ecomdash/internal/metrics"
	"ecomdash/internal/middleware/ratelimit"
	"ecomdash/internal/middleware/security"
	"ecomdash/internal/middleware/trace"
	"ecomdash/internal/services"
	"ecomdash/internal/storage"
	appweb "ecomdash/web"
)

// Dashboard computes snapshots over the loaded table.
type Dashboard interface {
	Ready() bool
	Bounds() (core.DateRange, error)
	Compute(ctx context.Context, r core.DateRange, origin string) (services.Result, error)
}

// Reports queues report requests for the worker and reads their status.
type Reports interface {
	Enabled() bool
	Enqueue(ctx context.Context, r core.DateRange, topN int) (*amqp.ReportRequest, error)
	Get(ctx context.Context, correlationID string) (storage.ReportRun, error)
}

// Options configures NewServer. Reports and Metrics may be nil.
type Options struct {
	Addr      string
	Dashboard Dashboard
	Reports   Reports
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	RateLimit ratelimit.Config
}

// Server wraps http.Server with the dashboard routes.
type Server struct {
	http.Server

	dashboard Dashboard
	reports   Reports
	metrics   *metrics.Metrics
	logger    *log.Logger
	templates *template.Template
	limiter   *ratelimit.Limiter
	mux       *http.ServeMux
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		dashboard: opts.Dashboard,
		reports:   opts.Reports,
		metrics:   opts.Metrics,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		mux:       mux,
		started:   time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	exportLimit := s.limiter.Middleware(clientIP, s.handleRateLimited)

	s.handle("GET /{$}", http.HandlerFunc(s.handleIndex))
	s.handle("GET /ui/dashboard", http.HandlerFunc(s.handleDashboardPartial))
	s.handle("GET /api/dashboard", http.HandlerFunc(s.handleDashboardJSON))
	s.handle("POST /api/reports", http.HandlerFunc(s.handleCreateReport))
	s.handle("GET /api/reports/{id}", http.HandlerFunc(s.handleGetReport))
	s.handle("GET /export/dashboard.xlsx", exportLimit(s.handleExport(exportXLSX)))
	s.handle("GET /export/dashboard.csv", exportLimit(s.handleExport(exportCSV)))
	s.handle("GET /healthz", http.HandlerFunc(s.handleHealth))
	s.handle("GET /readyz", http.HandlerFunc(s.handleReady))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var observe trace.ObserveFunc
	if s.metrics != nil {
		observe = s.metrics.ObserveHTTP
	}
	tracer := trace.NewMiddleware(clientIP, observe)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// trace must see the request the mux matched on to read its pattern.
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           headers.Middleware(log.Middleware(logger)(tracer.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// handle registers h with a request-scoped logger carrying the request id.
func (s *Server) handle(pattern string, h http.Handler) {
	withID := log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})
	s.mux.Handle(pattern, withID(h))
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, clientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many exports, please try again later.").Write(w)
}
