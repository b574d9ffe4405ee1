// Package server wires together HTTP routes, dependency injection, and the
// file service. Routing runs on gin; the listener itself stays a plain
// net/http server so timeouts and graceful shutdown are under our control.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/FileDrop/internal/config"
	"github.com/dharsanguruparan/FileDrop/internal/files"
)

// Server hosts HTTP handlers for FileDrop.
type Server struct {
	cfg    *config.Config
	files  *files.Service
	log    *slog.Logger
	engine *gin.Engine
}

// New creates a configured server with its routes registered.
func New(cfg *config.Config, svc *files.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, files: svc, log: logger}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Serve listens on the configured address until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until the context is cancelled. Only the header
// read is bounded: body reads and response writes have no deadline, so very
// large uploads and downloads are never cut off.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	go func() {
		<-ctx.Done()
		// When the context is cancelled we gracefully shutdown with a timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown", "error", err)
		}
	}()
	s.log.Info("listening", "addr", ln.Addr().String(), "upload_dir", s.files.Directory().Root())
	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(recovery(s.log), requestLogger(s.log), cors(s.cfg.CORSOrigins))

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not found")
	})
	r.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.registerUI(r)
	r.GET("/healthz", s.handleHealth)
	r.GET("/files", s.handleList)
	r.POST("/upload", s.handleUpload)
	r.POST("/upload-multiple", s.handleUploadMultiple)
	r.GET("/uploads/:name", s.handleDownload)
	r.HEAD("/uploads/:name", s.handleDownload)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
