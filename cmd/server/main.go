package main

import (
	"context"   // context package is needed for Redis and S3 setup
	"net/http"  // HTTP server
	"os"        // Process exit codes
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"photo_share/internal/api"        // HTTP handlers and router
	"photo_share/internal/config"     // Configuration
	"photo_share/internal/db"         // Database connection and migration
	"photo_share/internal/middleware" // Rate limiting
	"photo_share/internal/service"    // Business logic
	"photo_share/internal/session"    // Session stores
	"photo_share/internal/storage"    // Photo storage backends

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

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Connect to the database and make sure the schema exists
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}

	ctx := context.Background()

	// Setup Redis client when a component needs it
	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Session persistence
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	var sessions session.Store
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		sessions = session.NewRedisStore(redisClient, ttl, cfg.IsProd)
	default:
		sessions = session.NewCookieStore(cfg.SessionSecret, ttl, cfg.IsProd)
	}

	// Photo storage
	var photos storage.Storage
	switch cfg.StorageDriver {
	case config.StorageDriverS3:
		photos, err = storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		photos, err = storage.NewLocalStorage(cfg.UploadDir)
	}
	if err != nil {
		logrus.Fatalf("failed to set up %s storage: %v", cfg.StorageDriver, err)
	}

	// Services
	var galleryCache redis.Cmdable
	if cfg.GalleryCache {
		galleryCache = redisClient
	}
	accounts := service.NewAccountService(gdb)
	gallery := service.NewGalleryService(gdb, galleryCache)
	uploads := service.NewUploadService(gdb, photos, gallery)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := api.NewRouter(api.Dependencies{
		DB:             gdb,
		Accounts:       accounts,
		Gallery:        gallery,
		Uploads:        uploads,
		Sessions:       sessions,
		Storage:        photos,
		Limiter:        middleware.NewRateLimiter(cfg.LoginRatePerMin),
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		TrustedProxies: []string{"127.0.0.1"},
		SecureCookies:  cfg.IsProd,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":    cfg.AppPort,
			"db":      cfg.DBDriver,
			"storage": cfg.StorageDriver,
			"session": cfg.SessionBackend,
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
	logrus.Info("Server stopped")
}
