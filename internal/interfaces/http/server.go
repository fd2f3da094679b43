// Package http exposes the workflow engine and its supporting services as a
// JSON REST API. Handlers only translate requests; all rules live in the
// application layer.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/garyjia/fieldops/internal/application/service"
	"github.com/garyjia/fieldops/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthChecker reports the health of each runtime component. A nil
// error means the component is healthy.
type HealthChecker interface {
	Health(ctx context.Context) map[string]error
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Dependencies are the application services the handlers call
type Dependencies struct {
	Engine   workflow.Engine
	Quotes   service.QuoteService
	Visits   service.VisitService
	Invoices service.InvoiceService
	Auth     *Authenticator
	Health   HealthChecker
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	auth       *Authenticator
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Dependencies, logger Logger) *Server {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(deps, logger),
		auth:     deps.Auth,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	if c, ok := corsConfig(s.config.AllowedOrigins); ok {
		s.router.Use(cors.New(c))
	}
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	api.Use(s.auth.Middleware())
	{
		// Quotes
		api.POST("/quotes", h.CreateQuote)
		api.GET("/quotes/:id", h.GetQuote)
		api.PUT("/quotes/:id/items", h.ReplaceQuoteItems)
		api.POST("/quotes/:id/transitions", h.TransitionQuote)
		api.GET("/quotes/:id/history", h.ListQuoteHistory)
		api.POST("/quotes/:id/convert-to-invoice", h.ConvertQuoteToInvoice)

		// Surveys
		api.POST("/surveys", h.CreateSurvey)
		api.GET("/surveys/:id", h.GetSurvey)
		api.POST("/surveys/:id/transitions", h.TransitionSurvey)

		// Installations
		api.POST("/installations", h.CreateInstallation)
		api.GET("/installations/:id", h.GetInstallation)
		api.POST("/installations/:id/transitions", h.TransitionInstallation)

		// Projects
		api.GET("/projects/:id/surveys", h.ListProjectSurveys)
		api.GET("/projects/:id/installations", h.ListProjectInstallations)

		// Invoices
		api.GET("/invoices/:id", h.GetInvoice)
		api.POST("/invoices/:id/transitions", h.TransitionInvoice)
		api.GET("/invoices/:id/document", h.GetInvoiceDocument)
	}
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.Address(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", s.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
