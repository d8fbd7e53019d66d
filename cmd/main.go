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
	"pim-service/internal/catalog"
	"pim-service/internal/clients"
	"pim-service/internal/config"
	"pim-service/internal/events"
	"pim-service/internal/handlers"
	"pim-service/internal/middleware"
	"pim-service/internal/repository"
	"pim-service/internal/services"
)

// @title PIM Service API
// @version 1.0.0
// @description Product information management service: view templates, retailer field mappings and calculated fields with multi-tenant support
// @termsOfService http://swagger.io/terms/

// @contact.name PIM API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8093
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize repositories
	templateRepo := repository.NewTemplateRepository(db, redisClient)
	mappingTemplateRepo := repository.NewMappingTemplateRepository(db, redisClient)

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// Retailer field catalog and services
	retailerCatalog := catalog.Default()
	mappingTemplateService := services.NewMappingTemplateService(mappingTemplateRepo, templateRepo, retailerCatalog, logger)

	// Initialize clients
	productsClient := clients.NewProductsClient(cfg.ProductsServiceURL)

	// Initialize the template service with the event publisher (may be nil if
	// NATS is not configured) and build handlers on top of it
	var publisher services.TemplateEventPublisher
	if eventsPublisher != nil {
		publisher = eventsPublisher
	}
	templateService := services.NewTemplateService(templateRepo, publisher, logger)
	templateHandler := handlers.NewTemplateHandler(templateService)
	mappingTemplateHandler := handlers.NewMappingTemplateHandler(mappingTemplateService)
	retailersHandler := handlers.NewRetailersHandler(retailerCatalog)
	calculatedFieldsHandler := handlers.NewCalculatedFieldsHandler(productsClient)
	importHandler := handlers.NewImportHandler(templateService)

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
	router.GET("/ready", handlers.HealthCheck)

	// Protected API routes
	api := router.Group("/api/v1")
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentAuthMiddleware())
	}
	api.Use(middleware.TenantMiddleware())

	// API routes
	v1 := api.Group("")
	{
		viewTemplates := v1.Group("/view-templates")
		{
			viewTemplates.GET("", templateHandler.ListTemplates)
			viewTemplates.POST("", templateHandler.CreateTemplate)
			viewTemplates.GET("/:id", templateHandler.GetTemplate)
			viewTemplates.PUT("/:id", templateHandler.UpdateTemplate)
			viewTemplates.DELETE("/:id", templateHandler.DeleteTemplate)
			viewTemplates.POST("/:id/clone", templateHandler.CloneTemplate)
			viewTemplates.POST("/:id/default", templateHandler.SetDefaultTemplate)
			viewTemplates.PUT("/:id/sections/:sectionId/attributes/:attributeId/options", templateHandler.UpdateAttributeOptions)

			// Field mapping assignment
			viewTemplates.POST("/:id/field-mapping", mappingTemplateHandler.AssignToView)
			viewTemplates.DELETE("/:id/field-mapping", mappingTemplateHandler.UnassignFromView)

			// Import
			viewTemplates.GET("/import/template", importHandler.GetImportTemplate)
			viewTemplates.POST("/import", importHandler.ImportTemplate)
		}

		mappingTemplates := v1.Group("/field-mapping-templates")
		{
			mappingTemplates.GET("", mappingTemplateHandler.ListTemplates)
			mappingTemplates.POST("", mappingTemplateHandler.CreateTemplate)
			mappingTemplates.GET("/:id", mappingTemplateHandler.GetTemplate)
			mappingTemplates.PUT("/:id", mappingTemplateHandler.UpdateTemplate)
			mappingTemplates.DELETE("/:id", mappingTemplateHandler.DeleteTemplate)
			mappingTemplates.GET("/:id/status", mappingTemplateHandler.GetStatuses)
			mappingTemplates.PUT("/:id/mappings/:retailerId", mappingTemplateHandler.SetMappingEntry)
			mappingTemplates.POST("/:id/mappings/:retailerId/auto-map", mappingTemplateHandler.AutoMap)
			mappingTemplates.GET("/:id/mappings/:retailerId/targets", mappingTemplateHandler.GetMappedTargets)
		}

		retailers := v1.Group("/retailers")
		{
			retailers.GET("", retailersHandler.ListRetailers)
			retailers.GET("/:retailerId/fields", retailersHandler.GetRetailerFields)
			retailers.GET("/:retailerId/categories", retailersHandler.GetRetailerCategories)
		}

		calculatedFields := v1.Group("/calculated-fields")
		{
			calculatedFields.POST("/validate", calculatedFieldsHandler.ValidateFormula)
			calculatedFields.POST("/evaluate", calculatedFieldsHandler.EvaluateFormula)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server
	port := cfg.Port

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("PIM service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down pim-service...")
	log.Println("PIM service stopped")
}
