// Package api exposes the backup engine over HTTP: export download,
// record listing, restore upload, health and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"risk-register-backup/internal/backup"
	"risk-register-backup/internal/logging"
	"risk-register-backup/internal/snapshot"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BackupService is the part of backup.Manager the HTTP surface needs
type BackupService interface {
	Export(ctx context.Context, req backup.ExportRequest) (*backup.Artifact, error)
	Restore(ctx context.Context, data []byte) *snapshot.RestoreOutcome
	Check(data []byte) *snapshot.RestoreOutcome
	List(ctx context.Context, filter backup.RecordFilter) ([]backup.BackupRecord, error)
}

// Options configures a Server
type Options struct {
	Service         BackupService
	Auth            *Authenticator
	BackupRoles     []string
	PrivilegedRoles []string
	MaxUploadBytes  int64
	Gatherer        prometheus.Gatherer  // nil disables /metrics
	Ready           func(context.Context) error
	Logger          *logging.Logger
}

// Server routes backup requests to a BackupService
type Server struct {
	service         BackupService
	auth            *Authenticator
	backupRoles     []string
	privilegedRoles []string
	maxUploadBytes  int64
	gatherer        prometheus.Gatherer
	ready           func(context.Context) error
	logger          *logging.Logger
}

// NewServer creates a Server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 64 << 20
	}
	return &Server{
		service:         opts.Service,
		auth:            opts.Auth,
		backupRoles:     opts.BackupRoles,
		privilegedRoles: opts.PrivilegedRoles,
		maxUploadBytes:  maxUpload,
		gatherer:        opts.Gatherer,
		ready:           opts.Ready,
		logger:          logger,
	}
}

// Handler builds the chi router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.accessLog)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/backups", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Use(RequireRole(s.backupRoles))

		r.Get("/", s.handleList)
		r.Post("/", s.handleExport)
		r.Post("/restore", s.handleRestore)
	})

	return r
}

// NewHTTPServer wraps handler with the configured timeouts
func NewHTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.CreateContextWithRequestID(r.Context(), id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	})
}
