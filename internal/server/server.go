package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/ridwanfathin/invoice-records-service/docs"
	"github.com/ridwanfathin/invoice-records-service/internal/config"
	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/ridwanfathin/invoice-records-service/internal/handler"
	"github.com/ridwanfathin/invoice-records-service/internal/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// Server represents the HTTP server for the invoice records service
type Server struct {
	router         *gin.Engine
	httpServer     *http.Server
	invoiceHandler *handler.InvoiceHandler
	healthCheck    HealthChecker
	config         *config.Config
}

// NewServer creates and configures a new server instance
func NewServer(cfg *config.Config, invoiceHandler *handler.InvoiceHandler, healthCheck HealthChecker) *Server {
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestResponseLogger(middleware.LoggerConfig{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
	}))

	server := &Server{
		router:         router,
		invoiceHandler: invoiceHandler,
		healthCheck:    healthCheck,
		config:         cfg,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	server.setupRoutes()

	return server
}

// GetRouter returns the gin router instance
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	// API documentation endpoints
	// Access the Swagger UI at http://localhost:8080/api-docs/index.html
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler)
	s.router.GET("/api-docs/*any", swaggerHandler)

	s.router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/index.html")
	})

	v1 := s.router.Group("/v1")
	v1.Use(middleware.JWTAuth(s.config.JWTSecret))
	s.invoiceHandler.RegisterRoutes(v1, middleware.RequireRole(domain.RoleAdmin))
}

func (s *Server) health(c *gin.Context) {
	if s.healthCheck != nil {
		if err := s.healthCheck(c.Request.Context()); err != nil {
			log.Printf("Health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Start begins listening for requests and handles graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on port %d", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	log.Println("Shutting down server...")

	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited gracefully")
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}
