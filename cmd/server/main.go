package main

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
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shortlink/internal/cache"
	"shortlink/internal/config"
	"shortlink/internal/domain"
	"shortlink/internal/handler"
	"shortlink/internal/repository"
	postgresRepo "shortlink/internal/repository/postgres"
	"shortlink/internal/service"
	"shortlink/internal/tracking"
	customLogger "shortlink/pkg/logger"
)

// gormWriter wraps our custom logger to implement gorm's logger.Writer interface
type gormWriter struct {
	logger *customLogger.Logger
}

// Printf implements the logger.Writer interface
func (w *gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Info(fmt.Sprintf(format, args...))
}

func main() {
	// Simple health check for Docker - just make HTTP request to existing server
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		resp, err := http.Get("http://localhost:8080/health")
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load environment variables from .env file (development only)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Initialize structured logger
	appLogger := customLogger.NewLogger()
	appLogger.Info("Starting shortlink service")

	// Load application configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Fatal("Failed to load configuration", "error", err)
	}

	// Initialize database connection
	db, err := initDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", "error", err)
	}

	// Initialize Redis cache. The cache is a derived accelerator; the service
	// degrades to store-only resolution when Redis is unreachable.
	resolutionCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		appLogger.Warn("Failed to initialize Redis cache, continuing without cache", "error", err)
		resolutionCache = nil
	}

	// Initialize repository layer
	linkRepo := postgresRepo.NewLinkRepository(db)
	clickRepo := postgresRepo.NewClickRepository(db)

	// Start the click pipeline before the server accepts traffic
	pipeline := tracking.NewPipeline(
		linkRepo,
		clickRepo,
		tracking.NoopGeoResolver{},
		appLogger,
		cfg.TrackingWorkers,
		cfg.TrackingBuffer,
		cfg.StoreTimeout,
	)
	pipeline.Start()

	// Periodically deactivate links whose expiry has passed so the store
	// converges with what resolution already refuses to serve
	sweepDone := make(chan struct{})
	go runExpirySweep(linkRepo, cfg, appLogger, sweepDone)

	// Initialize service layer with dependency injection
	linkService := service.NewLinkService(linkRepo, clickRepo, resolutionCache, pipeline, cfg, appLogger)

	// Initialize HTTP handler
	linkHandler := handler.NewLinkHandler(linkService, appLogger)

	// Setup HTTP router with middleware
	router := setupRouter(linkHandler, cfg, appLogger)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start server in a goroutine for graceful shutdown
	go func() {
		appLogger.Info("Server starting", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with 30 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Drain in-flight click jobs after the HTTP server stops accepting
	pipeline.Stop()
	close(sweepDone)

	// Close Redis connection
	if resolutionCache != nil {
		if err := resolutionCache.Close(); err != nil {
			appLogger.Error("Error closing Redis connection", "error", err)
		}
	}

	appLogger.Info("Server exited successfully")
}

// initDatabase initializes the PostgreSQL database connection with connection pooling
func initDatabase(cfg *config.Config, log *customLogger.Logger) (*gorm.DB, error) {
	writer := &gormWriter{logger: log}

	gormLogger := logger.New(
		writer, // Use our custom writer
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// Connect to PostgreSQL with retry logic
	var db *gorm.DB
	var err error

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		)

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:                 gormLogger,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
			// Map unique violations to gorm.ErrDuplicatedKey so the
			// repository can surface domain.ErrCodeTaken
			TranslateError: true,
		})

		if err == nil {
			break
		}

		log.Warn("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		time.Sleep(5 * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	// The unique index on short_links.short_code created here is the
	// uniqueness authority for concurrent creation
	if err := db.AutoMigrate(&domain.ShortLink{}, &domain.ClickEvent{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Get underlying SQL DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool for optimal performance
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established successfully")
	return db, nil
}

// runExpirySweep deactivates expired links on an hourly cadence until done
// is closed. Resolution enforces expiry on its own; the sweep just keeps
// is_active honest for listings and offloaded reporting.
func runExpirySweep(links repository.LinkRepository, cfg *config.Config, log *customLogger.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
			n, err := links.DeactivateExpired(ctx)
			cancel()

			if err != nil {
				log.Error("Expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("Expired links deactivated", "count", n)
			}
		case <-done:
			return
		}
	}
}

// setupRouter configures the Gin router with middleware and routes
func setupRouter(linkHandler *handler.LinkHandler, cfg *config.Config, log *customLogger.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Apply global middleware
	router.Use(gin.Recovery()) // Panic recovery
	router.Use(handler.RequestIDMiddleware())
	router.Use(handler.LoggerMiddleware(log))
	router.Use(handler.CORSMiddleware(cfg))
	router.Use(handler.SecurityHeadersMiddleware())
	router.Use(handler.RateLimitMiddleware(cfg.RateLimitPerMinute))

	// Health check endpoint (no authentication required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "shortlink",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/links", linkHandler.CreateLink)
		v1.GET("/links/:shortCode", linkHandler.GetLinkInfo)
		v1.GET("/links/:shortCode/stats", linkHandler.GetStats)

		// Owner-scoped operations require the API key when auth is enabled
		v1.GET("/links", handler.AuthMiddleware(cfg), linkHandler.ListLinks)
		v1.DELETE("/links/:shortCode", handler.AuthMiddleware(cfg), linkHandler.DeactivateLink)
	}

	// Short link redirection (public endpoint)
	router.GET("/:shortCode", linkHandler.Redirect)

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "endpoint not found",
		})
	})

	return router
}
