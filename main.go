package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/farm-to-table/cache"
	"github.com/yeremiapane/farm-to-table/config"
	"github.com/yeremiapane/farm-to-table/database"
	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/router"
	"github.com/yeremiapane/farm-to-table/services"
	"github.com/yeremiapane/farm-to-table/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret, cfg.JWTTTL)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed admin: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event fan-out: websocket hub selalu aktif, Kafka opsional
	hub := events.NewHub()
	publishers := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
		utils.InfoLogger.Printf("Publishing order events to Kafka topic %s", cfg.KafkaTopic)
	}

	// Catalog cache opsional
	var catalog cache.CatalogCache = cache.NoopCatalogCache{}
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			utils.ErrorLogger.Printf("Redis unavailable, catalog cache disabled: %v", err)
		} else {
			defer client.Close()
			catalog = cache.NewRedisCatalogCache(client, cfg.CatalogCacheTTL)
			utils.InfoLogger.Printf("Catalog cache enabled at %s", cfg.RedisAddr)
		}
	}

	monitor := services.NewStockMonitor(db, publishers, cfg.LowStockThreshold, cfg.StockMonitorInterval)
	monitor.Start()
	defer monitor.Stop()

	pricing := services.NewPricing(cfg.DeliveryFee, cfg.FreeDeliveryThreshold, cfg.EnforceOrderAmount)
	r := router.SetupRouter(router.Dependencies{
		DB:           db,
		Hub:          hub,
		Publisher:    publishers,
		Cache:        catalog,
		Pricing:      &pricing,
		UploadDir:    cfg.UploadDir,
		CORSOrigins:  cfg.CORSOrigins,
		RateLimitRPS: cfg.RateLimitRPS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}
}
