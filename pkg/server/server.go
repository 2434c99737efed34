// Package server serves packaged reports to the VR viewer.
//
// Routes:
//
//	GET    /healthz                      liveness and build version
//	POST   /api/reports                  upload a report zip, returns {"id": ...}
//	GET    /api/reports/{id}             download the zip
//	GET    /api/reports/{id}/manifest    the report's index.json
//	DELETE /api/reports/{id}             remove a report
//
// Uploads are checked before they are stored: the body must be a zip no
// larger than the configured limit with a manifest written by scvrprep.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/singlecellvr/scvrprep/pkg/store"
)

// DefaultMaxUpload limits upload size when Options.MaxUpload is zero.
const DefaultMaxUpload = 512 * datasize.MB

// Options configures a Server.
type Options struct {
	Store     store.Store
	Logger    *log.Logger
	MaxUpload datasize.ByteSize
	Version   string
}

// Server is the report HTTP server.
type Server struct {
	store     store.Store
	logger    *log.Logger
	maxUpload datasize.ByteSize
	version   string
	router    chi.Router
}

// New creates a server. A nil logger discards messages.
func New(opts Options) *Server {
	s := &Server{
		store:     opts.Store,
		logger:    opts.Logger,
		maxUpload: opts.MaxUpload,
		version:   opts.Version,
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.maxUpload == 0 {
		s.maxUpload = DefaultMaxUpload
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/reports", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleDownload)
			r.Get("/manifest", s.handleManifest)
			r.Delete("/", s.handleDelete)
		})
	})
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("serving reports", "addr", addr, "store", s.store.Name(), "max_upload", s.maxUpload.HumanReadable())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
