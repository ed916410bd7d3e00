package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alimgiray/newsletter-manager/internal/cache"
	"github.com/alimgiray/newsletter-manager/internal/handlers"
	"github.com/alimgiray/newsletter-manager/internal/inputfilter"
	"github.com/alimgiray/newsletter-manager/internal/middleware"
	"github.com/alimgiray/newsletter-manager/internal/repositories"
	"github.com/alimgiray/newsletter-manager/internal/services"
	"github.com/alimgiray/newsletter-manager/pkg/config"
	"github.com/alimgiray/newsletter-manager/pkg/database"
	"github.com/alimgiray/newsletter-manager/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	logger.Init()
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	if err := database.Init(cfg.Database); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Input filter
	settings, err := inputfilter.LoadSettings(cfg.InputFilter.SettingsPath)
	if err != nil {
		logger.Fatalf("Failed to load input filter settings: %v", err)
	}
	filter, err := inputfilter.New(settings, cfg.InputFilter.MaxDepth)
	if err != nil {
		logger.Fatalf("Failed to compile input filter: %v", err)
	}
	var referer *inputfilter.RefererCheck
	if settings.RefererCheck {
		referer = inputfilter.NewRefererCheck(cfg.Shop.Host, cfg.Shop.SecureHost)
	}

	// Revenue cache
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	cancel()
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, revenue cache disabled")
	}
	if rdb != nil {
		defer rdb.Close()
	}
	revenueCache := cache.NewRevenueCache(rdb, time.Duration(cfg.Redis.RevenueTTLSeconds)*time.Second)

	// Initialize dependencies
	campaignRepo := repositories.NewCampaignRepository(database.DB)
	addressRepo := repositories.NewAddressRepository(database.DB)
	senderRepo := repositories.NewSenderRepository(database.DB)
	groupRepo := repositories.NewGroupRepository(database.DB)
	orderRepo := repositories.NewOrderRepository(database.DB)

	campaignService := services.NewCampaignService(campaignRepo, addressRepo, orderRepo, revenueCache)
	recipientService := services.NewRecipientService(addressRepo)
	exportService := services.NewRecipientExportService(addressRepo)
	senderService := services.NewSenderService(senderRepo)
	groupService := services.NewGroupService(groupRepo)
	subscriptionService := services.NewSubscriptionService(addressRepo, cfg.Newsletter.DefaultGroupID)

	acl := middleware.NewStaticACL(config.ParseRolePrivileges(cfg.ACL.RolePrivileges))

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AddAllowHeaders("X-Request-ID")
		router.Use(cors.New(corsConfig))
	}
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	router.Use(middleware.NewInputFilter(filter, referer).Handler())

	handlers.RegisterRoutes(router, handlers.Handlers{
		Auth:         handlers.NewAuthHandler(),
		Health:       handlers.NewHealthHandler(database.DB),
		NotFound:     handlers.NewNotFoundHandler(),
		Newsletter:   handlers.NewNewsletterHandler(campaignService),
		Recipient:    handlers.NewRecipientHandler(recipientService, exportService),
		Sender:       handlers.NewSenderHandler(senderService),
		Group:        handlers.NewGroupHandler(groupService),
		Subscription: handlers.NewSubscriptionHandler(subscriptionService),
	}, acl)

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server forced to shut down")
	}

	logger.Info("Server stopped")
}
