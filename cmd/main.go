package main

import (
	"menu-service/internal/handler"
	appmw "menu-service/internal/middleware"
	"menu-service/pkg/config"
	"menu-service/pkg/database"
	"menu-service/pkg/jwtutil"
	"menu-service/pkg/logger"
	"menu-service/prometheus"

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

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting menu service...", zap.String("environment", cfg.Server.Env))

	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	jwtutil.Initialize(&cfg.JWT)
	handler.Initialize(cfg)
	log.Info("JWT utility initialized")

	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(appmw.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/logout", handler.Logout)

	// Anonymous customer-facing menu projection
	public := e.Group("/public/menu")
	public.GET("/link/:token", handler.GetPublicMenuByLink)
	public.GET("/:companyId", handler.GetPublicMenu)
	public.GET("/:companyId/categories", handler.ListPublicCategories)
	public.GET("/:companyId/category/:category", handler.GetPublicItemsByCategory)
	public.GET("/:companyId/search", handler.SearchPublicMenu)
	public.GET("/:companyId/info", handler.GetCompanyInfo)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(appmw.AuthMiddleware)

	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)
	users.POST("/change-password", handler.ChangePassword)

	companies := api.Group("/companies")
	companies.POST("", handler.CreateCompany)
	companies.GET("/my/company", handler.GetMyCompany)
	companies.GET("/:id", handler.GetCompany)
	companies.PUT("/:id", handler.UpdateCompany, appmw.RequireCompanyOwnership)
	companies.POST("/:id/regenerate-qr", handler.RegenerateQRCode, appmw.RequireCompanyOwnership)

	menuItems := api.Group("/menu-items")
	menuItems.POST("", handler.CreateMenuItem)
	menuItems.GET("/company/:companyId", handler.ListCompanyMenuItems, appmw.RequireCompanyOwnership)
	menuItems.GET("/:id", handler.GetMenuItem, appmw.RequireMenuItemOwnership)
	menuItems.PUT("/:id", handler.UpdateMenuItem, appmw.RequireMenuItemOwnership)
	menuItems.DELETE("/:id", handler.DeleteMenuItem, appmw.RequireMenuItemOwnership)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
