package main

import (
	"dashboard-service/internal/enrich"
	"dashboard-service/internal/handler"
	"dashboard-service/internal/middleware"
	"dashboard-service/pkg/config"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/jwtutil"
	"dashboard-service/pkg/llm"
	"dashboard-service/pkg/logger"
	"dashboard-service/pkg/logoapi"
	"dashboard-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "dashboard-service",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting dashboard service...", cfg.LogConfig()...)

	// Initialize database
	if err := database.Initialize(database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
	}); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&jwtutil.Config{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	log.Info("JWT utility initialized")

	// Initialize external service clients and the enrichment pipeline
	llmClient := llm.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
	logoClient := logoapi.NewClient(cfg.Logo.BaseURL)
	enricher := enrich.New(llmClient, logoClient, cfg.AI.MaxTokens, log)
	handler.Initialize(cfg, enricher, llmClient)
	log.Info("Enrichment pipeline initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.GET("/invites/:code", handler.GetInvite)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/login", handler.Login)
	auth.POST("/register", handler.Register)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Tenant management
	tenants := api.Group("/tenants")
	tenants.POST("", handler.CreateTenant)
	tenants.GET("", handler.ListUserTenants)
	tenants.GET("/:id", handler.GetTenant)
	tenants.DELETE("/:id", handler.DeleteTenant)
	tenants.GET("/:id/members", handler.ListMembers)
	tenants.PATCH("/:id/members/:user_id", handler.UpdateMemberRole)
	api.POST("/tenant-auth/switch", handler.SwitchTenant)

	// Invites
	api.POST("/invites", handler.CreateInvite)

	// Tasks and comments
	tasks := api.Group("/tasks")
	tasks.GET("", handler.ListTasks)
	tasks.POST("", handler.CreateTask)
	tasks.GET("/:id", handler.GetTask)
	tasks.PATCH("/:id", handler.UpdateTask)
	tasks.DELETE("/:id", handler.DeleteTask)
	tasks.GET("/:id/comments", handler.ListComments)
	tasks.POST("/:id/comments", handler.CreateComment)

	// Resources, suggestions and the template library
	resources := api.Group("/resources")
	resources.GET("", handler.ListResources)
	resources.POST("", handler.CreateResource)
	resources.PATCH("/:id", handler.UpdateResource)
	resources.DELETE("/:id", handler.DeleteResource)
	resources.POST("/suggest", handler.SuggestResource)
	api.GET("/resource-templates", handler.ListResourceTemplates)
	api.POST("/resource-templates/:id/import", handler.ImportResourceTemplate)

	// Categories
	categories := api.Group("/categories")
	categories.GET("", handler.ListCategories)
	categories.POST("", handler.CreateCategory)
	categories.PATCH("/:id", handler.UpdateCategory)
	categories.DELETE("/:id", handler.DeleteCategory)

	// Email prompts and drafting
	prompts := api.Group("/prompts")
	prompts.GET("", handler.ListPrompts)
	prompts.POST("", handler.CreatePrompt)
	prompts.PATCH("/:id", handler.UpdatePrompt)
	prompts.DELETE("/:id", handler.DeletePrompt)
	prompts.POST("/generate", handler.GeneratePrompt)
	api.POST("/email/draft", handler.DraftEmail)

	// Platform administration - global admin flag required
	admin := api.Group("/admin")
	admin.GET("/users", handler.ListUsers)
	admin.POST("/users", handler.CreateUser)
	admin.DELETE("/users/:id", handler.DeleteUser)
	admin.POST("/task-permissions", handler.GrantTaskPermission)
	admin.GET("/users/:id/task-permissions", handler.ListTaskPermissions)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
