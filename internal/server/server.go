// Package server exposes the drive operations over HTTP with JSON payloads.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/FileDock/internal/drive"
	"github.com/koustreak/FileDock/internal/logger"
)

// Server is the HTTP front of the file facade.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// New builds a Server routing to svc, listening on addr.
func New(addr string, svc *drive.Service, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New(nil)
	}

	h := &handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Post("/upload", h.upload)
	r.Post("/delete", h.delete)
	r.Get("/list", h.list)
	r.Post("/generate-sas", h.generateSAS)
	r.Post("/thumbnail", h.thumbnail)
	r.Get("/search", h.search)
	r.Post("/star", h.star)
	r.Get("/storage-usage", h.storageUsage)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.log.Infof("http server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
