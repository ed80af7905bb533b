// Package httpapi is the HTTP surface of GemDeck: document and file routes,
// the OAuth login flow and the admin endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gemdeck/internal/logging"
	"github.com/dmitrijs2005/gemdeck/internal/server/auth"
	"github.com/dmitrijs2005/gemdeck/internal/server/metrics"
	"github.com/dmitrijs2005/gemdeck/internal/server/oauth"
	"github.com/dmitrijs2005/gemdeck/internal/server/services"
	"github.com/dmitrijs2005/gemdeck/internal/server/turnstile"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
)

// Options carries the settings the handlers need from the server config.
type Options struct {
	SessionSecret  []byte
	SessionTTL     time.Duration
	LegacySessions bool
	CookieSecure   bool
	MaxUploadBytes int64
	Policy         auth.Policy
}

type Server struct {
	address  string
	opts     Options
	docs     *services.DocumentService
	system   *services.SystemService
	verifier turnstile.Verifier
	provider oauth.Provider
	metrics  *metrics.Metrics
	logger   logging.Logger
}

// NewServer builds the HTTP server. provider may be nil when OAuth login is
// not configured; verifier may be turnstile.Noop.
func NewServer(address string, opts Options, docs *services.DocumentService, system *services.SystemService,
	verifier turnstile.Verifier, provider oauth.Provider, m *metrics.Metrics, l logging.Logger) *Server {
	if verifier == nil {
		verifier = turnstile.Noop{}
	}
	return &Server{
		address:  address,
		opts:     opts,
		docs:     docs,
		system:   system,
		verifier: verifier,
		provider: provider,
		metrics:  m,
		logger:   l.With("module", "http_server"),
	}
}

// Handler returns the full route tree wrapped with compression and session
// resolution.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/docs", s.instrument("list", s.handleList)).Methods(http.MethodGet)
	api.Handle("/docs/{filename}", s.instrument("rename", s.handleRename)).Methods(http.MethodPatch)
	api.Handle("/docs/{filename}", s.instrument("delete", s.handleDelete)).Methods(http.MethodDelete)
	api.Handle("/upload", s.instrument("ingest", s.handleUpload)).Methods(http.MethodPost)
	api.Handle("/file/{token}", s.instrument("fetch", s.handleFile)).Methods(http.MethodGet, http.MethodHead)
	api.Handle("/content", s.instrument("content_get", s.handleContentGet)).Methods(http.MethodGet)
	api.Handle("/content", s.instrument("content_put", s.handleContentPut)).Methods(http.MethodPut)
	api.Handle("/admin/files", s.instrument("admin_delete", s.handleAdminDelete)).Methods(http.MethodDelete)
	api.Handle("/admin/system", s.instrument("admin_system", s.handleAdminSystem)).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.Handle("/login", s.instrument("login", s.handleLogin)).Methods(http.MethodGet)
	a.Handle("/callback", s.instrument("callback", s.handleCallback)).Methods(http.MethodGet)
	a.Handle("/logout", s.instrument("logout", s.handleLogout)).Methods(http.MethodGet, http.MethodPost)
	a.Handle("/me", s.instrument("me", s.handleMe)).Methods(http.MethodGet)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	return gzhttp.GzipHandler(s.withSession(r))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
