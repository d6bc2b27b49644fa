package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"supplier-catalog-service/internal/catalog"
	"supplier-catalog-service/internal/compliance"
	"supplier-catalog-service/internal/config"
	"supplier-catalog-service/internal/events"
	"supplier-catalog-service/internal/handlers"
	"supplier-catalog-service/internal/metrics"
	"supplier-catalog-service/internal/middleware"
	"supplier-catalog-service/internal/pipeline"
	"supplier-catalog-service/internal/repository"
	"supplier-catalog-service/internal/storage"
)

// @title Supplier Catalog API
// @version 1.0.0
// @description Supplier feed normalization, unified catalog and compliance trail with multi-tenant support
// @termsOfService http://swagger.io/terms/

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8088
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize storage backend
	var catalogStore storage.Catalog
	var trailStore storage.Trail
	if cfg.StorageBackend == "memory" {
		log.Println("Using in-memory storage backend")
		catalogStore = storage.NewMemoryCatalog()
		trailStore = storage.NewMemoryTrail()
	} else {
		db, err := config.InitDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		// Initialize Redis client
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
			redisOpts = &redis.Options{Addr: "localhost:6379"}
		}
		redisClient := redis.NewClient(redisOpts)

		// Test Redis connection
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
			redisClient = nil
		} else {
			log.Println("✓ Redis connected successfully")
		}
		cancel()

		catalogStore = repository.NewCatalogRepository(db, redisClient)
		trailStore = repository.NewTrailRepository(db)
	}

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		var err error
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	// Initialize Prometheus metrics
	registry := metrics.NewRegistry()
	log.Println("✓ Prometheus metrics initialized")

	// Initialize core components
	trailLogger := compliance.NewLogger(trailStore, logger)
	auditor := compliance.NewAuditor(trailStore, logger)
	cat := catalog.New(catalogStore, trailLogger, logger)
	pipe := pipeline.New(cat, trailLogger, eventsPublisher, registry, logger)

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(cat, eventsPublisher)
	complianceHandler := handlers.NewComplianceHandler(auditor, trailLogger, registry, cfg.ComplianceThreshold, cfg.LogRetentionDays)
	importHandler := handlers.NewImportHandler(pipe, cfg.Rules())

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)
	router.GET("/metrics", gin.WrapH(registry.Handler()))

	// Protected API routes
	api := router.Group("/api/v1")
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentAuthMiddleware())
	}
	api.Use(middleware.TenantMiddleware())

	v1 := api.Group("")
	{
		catalogRoutes := v1.Group("/catalog")
		{
			catalogRoutes.GET("/products", catalogHandler.GetProducts)
			catalogRoutes.GET("/products/:id", catalogHandler.GetProduct)
			catalogRoutes.DELETE("/products/:id", catalogHandler.DeleteProduct)
			catalogRoutes.POST("/search", catalogHandler.SearchProducts)
			catalogRoutes.GET("/compare", catalogHandler.CompareProducts)
			catalogRoutes.GET("/statistics", catalogHandler.GetStatistics)
			catalogRoutes.POST("/deduplicate", catalogHandler.RemoveDuplicates)
		}

		feeds := v1.Group("/feeds")
		{
			feeds.GET("/template", importHandler.GetImportTemplate)
			feeds.POST("/import", importHandler.ImportFeed)
		}

		complianceRoutes := v1.Group("/compliance")
		{
			complianceRoutes.GET("/retention", complianceHandler.CheckRetention)
			complianceRoutes.GET("/suppliers/:supplier/verify", complianceHandler.VerifyChain)
			complianceRoutes.GET("/suppliers/:supplier/audit", complianceHandler.AuditSupplier)
			complianceRoutes.GET("/suppliers/:supplier/trace/:id", complianceHandler.TraceProduct)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Supplier catalog service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down supplier-catalog-service...")
	log.Println("Supplier catalog service stopped")
}
