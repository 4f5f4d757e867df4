package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/snipd-io/snipd/pkg/snipd/auth"
	"github.com/snipd-io/snipd/pkg/snipd/cache"
	"github.com/snipd-io/snipd/pkg/snipd/config"
	"github.com/snipd-io/snipd/pkg/snipd/cors"
	"github.com/snipd-io/snipd/pkg/snipd/database"
	"github.com/snipd-io/snipd/pkg/snipd/links"
	"github.com/snipd-io/snipd/pkg/snipd/logger"
	"github.com/snipd-io/snipd/pkg/snipd/models"
	"github.com/snipd-io/snipd/pkg/snipd/redirect"
	"github.com/snipd-io/snipd/pkg/snipd/stats"
	"github.com/snipd-io/snipd/pkg/snipd/visits"

	_ "github.com/snipd-io/snipd/api/swagger"
)

// @title snipd API
// @version 1.0
// @description Self-hosted URL shortener: redirects, link management and visit analytics.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token from POST /api/login. Format: "Bearer {token}"

func main() {
	cfg := config.Load()

	log := logger.Init(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = log.Sync() }()
	sugar := log.Sugar()

	if cfg.AdminPassword == "" {
		sugar.Warn("SNIPD_ADMIN_PASSWORD is not set; admin login is disabled")
	}

	if err := database.Connect(cfg.DBPath); err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		sugar.Fatalf("Failed to run migrations: %v", err)
	}
	sugar.Info("Database migrations completed")

	cacheClient, err := cache.NewClient(&cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		sugar.Warnf("Redirect cache disabled: %v", err)
	} else if cacheClient != nil {
		defer func() { _ = cacheClient.Close() }()
		sugar.Info("Redirect cache connected")
	}

	tokens := auth.NewService(cfg.TokenSecret)
	recorder := visits.NewRecorder(database.GetDB(), sugar)

	// Set up Gin router
	r := gin.New()
	r.Use(logger.Recovery(log))
	r.Use(logger.RequestLogger(log))
	r.Use(cors.Middleware(cfg.CORSOrigin))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Root goes to the admin frontend
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, cfg.FrontendURL)
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group("/api")
	{
		// Login (public)
		authHandler := auth.NewHandler(cfg, tokens)
		authHandler.RegisterRoutes(api)

		// Everything else behind the bearer token
		protected := api.Group("", auth.Middleware(tokens))

		linksHandler := links.NewHandler(database.GetDB(), cacheClient)
		linksHandler.RegisterRoutes(protected)

		statsHandler := stats.NewHandler(database.GetDB())
		statsHandler.RegisterRoutes(protected)
	}

	// Unknown API routes answer JSON, everything else plain text
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
			return
		}
		c.String(http.StatusNotFound, "Not Found")
	})

	// Redirect routes (public, must be registered LAST to avoid conflicts)
	redirectHandler := redirect.NewHandler(database.GetDB(), cacheClient, recorder)
	redirectHandler.RegisterRoutes(r)

	sugar.Infof("Starting snipd server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		sugar.Fatalf("Failed to start server: %v", err)
	}
}
