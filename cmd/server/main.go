package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"net/http"  // HTTP server with graceful shutdown
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"storefront_api/internal/api"        // Custom package for API handlers
	"storefront_api/internal/config"     // Custom package for configuration
	"storefront_api/internal/db"         // Database connection
	"storefront_api/internal/middleware" // Session options
	"storefront_api/internal/storage"    // Image storage

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	// Connect to the database
	dsn, err := cfg.DSN()
	if err != nil {
		logrus.Fatalf("invalid database configuration: %v", err)
	}
	database, err := db.Open(cfg.DBDriver, dsn, cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Pick where uploaded images go
	var images storage.ImageStore
	switch cfg.StorageDriver {
	case "s3":
		images, err = storage.NewS3Store(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.AssetsBaseURL)
	default:
		images, err = storage.NewLocalStore(cfg.UploadDir, cfg.AssetsBaseURL)
	}
	if err != nil {
		logrus.Fatalf("failed to set up image storage: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Server{
		DB:     database,
		Redis:  redisClient,
		Config: cfg,
		Images: images,
		Session: middleware.SessionOptions{
			Secret:  cfg.JWTSecret,
			Timeout: cfg.SessionTimeout,
			Secure:  cfg.IsProd,
		},
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "db": cfg.DBDriver, "storage": cfg.StorageDriver}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("forced shutdown: %v", err)
	}
	_ = redisClient.Close()
	logrus.Info("Server stopped")
}
