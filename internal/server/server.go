// file: internal/server/server.go
// version: 2.0.0
// guid: 4c5d6e7f-8a9b-0c1d-2e3f-4a5b6c7d8e9f

// Package server exposes the pipeline's status, audit, and metrics
// endpoints over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rodaddy/audiobook-pipeline/internal/audit"
	"github.com/rodaddy/audiobook-pipeline/internal/server/middleware"
	"github.com/rodaddy/audiobook-pipeline/internal/state"
)

// Config holds server configuration.
type Config struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RequestsPerMinute enables per-IP rate limiting when > 0.
	RequestsPerMinute int

	// AuthUsername/AuthPassword enable basic auth on /api routes when
	// both are set.
	AuthUsername string
	AuthPassword string
}

// Server serves the HTTP API over a state store and library root.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	store       state.Store
	libraryRoot string
	version     string
}

// New builds a Server. store may be nil when no pipeline database is
// configured; /api/books then returns 503.
func New(store state.Store, libraryRoot, version string, cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.RequestsPerMinute > 0 {
		limiter := middleware.NewIPRateLimiter(cfg.RequestsPerMinute, cfg.RequestsPerMinute)
		router.Use(limiter.Middleware())
	}
	if cfg.AuthUsername != "" && cfg.AuthPassword != "" {
		router.Use(middleware.BasicAuth(cfg.AuthUsername, cfg.AuthPassword))
	}

	s := &Server{
		router:      router,
		store:       store,
		libraryRoot: libraryRoot,
		version:     version,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/api/report", s.libraryReport)
	s.router.GET("/api/books", s.listBooks)
}

// Handler returns the underlying HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start(cfg Config) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Println("[INFO] shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// libraryReport runs the library consistency check and returns the
// result as JSON.
func (s *Server) libraryReport(c *gin.Context) {
	if s.libraryRoot == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no library root configured"})
		return
	}
	report, err := audit.Verify(s.libraryRoot)
	if err != nil {
		log.Printf("[WARN] report failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// listBooks returns pipeline state records, optionally filtered by
// ?status=.
func (s *Server) listBooks(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no pipeline database configured"})
		return
	}
	records, err := s.store.List(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(records),
		"books": records,
	})
}
