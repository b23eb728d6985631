package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/ridwanfathin/invoice-records-service/internal/config"
	"github.com/ridwanfathin/invoice-records-service/internal/database"
	"github.com/ridwanfathin/invoice-records-service/internal/handler"
	"github.com/ridwanfathin/invoice-records-service/internal/repository"
	"github.com/ridwanfathin/invoice-records-service/internal/server"
	"github.com/ridwanfathin/invoice-records-service/internal/service"
	"github.com/ridwanfathin/invoice-records-service/internal/storage"
)

// @title Invoice Records API
// @version 1.0
// @description Invoice records with embedded PDF attachments and role-based access.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	// Load configuration
	log.Println("Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogger(cfg)

	ctx := context.Background()

	// Initialize repository
	log.Printf("Initializing %s repository...", cfg.StorageDriver)
	repo, healthCheck, closeStore := newRepository(ctx, cfg)
	defer closeStore()

	// Attachment archive is optional
	var opts []service.Option
	archiveCfg := cfg.ArchiveConfig()
	if archiveCfg.Enabled() {
		archiver, err := storage.NewS3Archiver(archiveCfg)
		if err != nil {
			log.Fatalf("Failed to initialize attachment archive: %v", err)
		}
		log.Printf("Archiving uploaded PDFs to bucket %s", archiveCfg.Bucket)
		opts = append(opts, service.WithArchiver(archiver))
	}

	// Create invoice service and handler
	invoiceService := service.NewInvoiceService(repo, opts...)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, cfg.MaxUploadSize)

	// Create and configure server
	log.Println("Configuring server...")
	appServer := server.NewServer(cfg, invoiceHandler, healthCheck)

	// Start server (blocking call)
	log.Printf("Starting server on port %d...", cfg.Port)
	if err := appServer.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server shutdown complete")
}

// newRepository builds the configured store, its health check and its cleanup
func newRepository(ctx context.Context, cfg *config.Config) (repository.InvoiceRepository, server.HealthChecker, func()) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		return repository.NewMemoryInvoiceRepository(), nil, func() {}
	}

	db, err := database.NewPostgresDB(ctx, database.Options{
		URL:      cfg.PostgresURL,
		MaxConns: int32(cfg.DBMaxConns),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if cfg.AutoMigrate {
		log.Println("Running database migrations...")
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	healthCheck := func(ctx context.Context) error {
		return db.GetPool().Ping(ctx)
	}
	return repository.NewPostgresInvoiceRepository(db.GetPool()), healthCheck, db.Close
}

// setupLogger points the default slog logger at stdout in the configured format
func setupLogger(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "pretty" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
