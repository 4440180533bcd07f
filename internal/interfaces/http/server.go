// Package http is the HTTP adapter: it translates requests into store and
// service calls and maps domain errors to status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/auth"
	"github.com/dmezas/control-obras/internal/export"
	"github.com/dmezas/control-obras/internal/ledger"
	"github.com/dmezas/control-obras/internal/receipt"
	"github.com/dmezas/control-obras/internal/service"
	"github.com/dmezas/control-obras/internal/site"
	"github.com/dmezas/control-obras/internal/storage"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Deps collects everything the handlers need.
type Deps struct {
	Auth      *auth.Authenticator
	Reports   *service.ReportService
	Sites     *site.Store
	Ledger    *ledger.Store
	Blobs     *storage.BlobStore
	Previewer *receipt.Previewer
	Exporter  *export.LedgerExporter
	SiteNames map[string]string
	Today     func() string // current date as YYYY-MM-DD, defaults to the wall clock
}

// Server is the HTTP adapter around the gin router.
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer builds the router, middleware and routes.
func NewServer(config ServerConfig, deps Deps, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config: config,
		router: gin.New(),
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes(deps)

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("latency", time.Since(start).String()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) setupRoutes(deps Deps) {
	handlers := NewHandlers(deps, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api/v1")
	api.POST("/login", handlers.Login)

	authed := api.Group("")
	authed.Use(deps.Auth.Middleware())
	{
		authed.GET("/sites/:site", handlers.GetSite)
		authed.POST("/sites/:site/report", handlers.SubmitReport)
		authed.GET("/sites/:site/history", handlers.SiteHistory)

		authed.POST("/cash/transactions", handlers.RecordTransaction)
		authed.GET("/cash/transactions", handlers.ListTransactions)
		authed.GET("/cash/totals", handlers.CashTotals)
	}

	jefe := authed.Group("")
	jefe.Use(auth.RequireJefe())
	{
		jefe.POST("/cash/transactions/:id/approve", handlers.ApproveTransaction)
		jefe.POST("/cash/transactions/:id/reject", handlers.RejectTransaction)
		jefe.GET("/cash/transactions/:id/receipt/preview", handlers.PreviewReceipt)
		jefe.GET("/cash/export", handlers.ExportLedger)
	}
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
