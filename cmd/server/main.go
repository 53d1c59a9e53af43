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

	internalcache "godrive/internal/cache"
	"godrive/internal/config"
	"godrive/internal/coordinator"
	driverhandlers "godrive/internal/handlers/driver"
	riderhandlers "godrive/internal/handlers/rider"
	sharedhandlers "godrive/internal/handlers/shared"
	"godrive/internal/middleware"
	"godrive/internal/realtime"
	mongorepo "godrive/internal/repositories/mongodb"
	"godrive/internal/services"
	"godrive/pkg/cache"
	"godrive/pkg/database"
	"godrive/pkg/logger"
	"godrive/pkg/maps"
	"godrive/pkg/push"
	"godrive/pkg/websocket"
	"godrive/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	mongoDB, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close()

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Repositories
	tripRepo := mongorepo.NewTripRepository(mongoDB.Database)
	driverRepo := mongorepo.NewDriverRepository(mongoDB.Database)
	sessionRepo := mongorepo.NewSessionRepository(mongoDB.Database)

	// Realtime hub
	hub := websocket.NewHub()
	go hub.Run()

	// Push providers are optional; drivers without one still get realtime
	// delivery over the hub.
	providers := make(map[string]push.PushProvider)
	if cfg.Push.FCMCredentialsFile != "" {
		fcm, err := push.NewFCMProvider(cfg.Push.FCMCredentialsFile)
		if err != nil {
			appLogger.Warnf("FCM provider disabled: %v", err)
		} else {
			providers["android"] = fcm
		}
	}
	if cfg.Push.APNSKeyFile != "" {
		apns, err := push.NewAPNSProvider(cfg.Push.APNSKeyFile, cfg.Push.APNSKeyID, cfg.Push.APNSTeamID, cfg.Push.APNSTopic, cfg.Push.APNSProduction)
		if err != nil {
			appLogger.Warnf("APNS provider disabled: %v", err)
		} else {
			providers["ios"] = apns
		}
	}

	var mapsProvider maps.MapsProvider
	if cfg.Maps.GoogleAPIKey != "" {
		mapsProvider, err = maps.NewGoogleMapsProvider(cfg.Maps.GoogleAPIKey)
		if err != nil {
			appLogger.Warnf("Maps provider disabled: %v", err)
			mapsProvider = nil
		}
	}

	// Services
	notifier := services.NewNotificationService(hub, providers, appLogger)
	tripService := services.NewTripService(tripRepo, driverRepo, mapsProvider, notifier, appLogger)
	driverService := services.NewDriverService(driverRepo, sessionRepo, redisCache, appLogger)
	statsService := services.NewStatsService(tripRepo, sessionRepo, appLogger)
	deviceAuth := services.NewDeviceAuthenticator(cfg.Security.JWTSecret, appLogger)

	// Per-driver coordinators
	snapshots := internalcache.NewRedisStore(redisCache)
	manager := coordinator.NewManager(coordinator.Deps{
		Trips:     tripService,
		Drivers:   driverService,
		Auth:      deviceAuth,
		Notifier:  notifier,
		Snapshots: snapshots,
		Realtime:  realtime.NewHubRealtime(hub, appLogger),
		Logger:    appLogger,
	})
	defer manager.Shutdown()

	// Handlers
	driverHandler := driverhandlers.NewDriverHandler(manager, driverService, statsService, snapshots)
	driverTripHandler := driverhandlers.NewTripHandler(manager, tripService)
	riderTripHandler := riderhandlers.NewTripHandler(tripService, notifier)
	wsHandler := sharedhandlers.NewWSHandler(hub, appLogger)
	chatHandler := sharedhandlers.NewChatHandler(hub)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	routes.SetupSharedRoutes(router, cfg.Security.JWTSecret, wsHandler, chatHandler)
	v1 := router.Group("/api/v1")
	{
		routes.SetupDriverRoutes(v1, cfg.Security.JWTSecret, driverHandler, driverTripHandler)
		routes.SetupRiderRoutes(v1, cfg.Security.JWTSecret, riderTripHandler)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting %s v%s on port %d", cfg.App.Name, cfg.App.Version, cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
}
