package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"parking-locator/config"
	"parking-locator/internal/api"
	"parking-locator/internal/auth"
	"parking-locator/internal/db"
	"parking-locator/internal/i18n"
	"parking-locator/internal/live"
	"parking-locator/internal/logger"
	"parking-locator/internal/mw"
	"parking-locator/internal/notification"
	"parking-locator/internal/sensor"
	"parking-locator/internal/store"
)

func main() {
	// A missing .env is fine, the config file and environment still apply.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	log.Info("configuration loaded", map[string]interface{}{"path": configPath, "env": cfg.Env})
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		log.Warn("VAPID keys are not configured, push notifications are disabled", nil)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty, user routes are not protected", nil)
	}

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to initialize database", err, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, log)
	catalog, err := i18n.Load(cfg.Client.Locale)
	if err != nil {
		log.Fatal("failed to load message catalog", err, nil)
	}

	hub := live.NewHub(log)
	go hub.Run(ctx)

	cache := mw.NewResponseCache(cfg.Server.CacheTTL)

	ingestOpts := []sensor.Option{sensor.WithPublisher(hub), sensor.WithCache(cache)}
	if webpushOptions != nil {
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, catalog, log)
		workerPool.Start(ctx)
		ingestOpts = append(ingestOpts, sensor.WithDispatcher(workerPool))
	}

	if cfg.Sensor.Enabled {
		source, closeSource, err := sensor.NewSource(ctx, cfg.Sensor, log)
		if err != nil {
			log.Fatal("failed to start sensor source", err, map[string]interface{}{"source": cfg.Sensor.Source})
		}
		defer closeSource()
		go sensor.NewService(cfg.Sensor, appStore, source, log, ingestOpts...).Run(ctx)
	} else {
		log.Info("sensor ingest is disabled", nil)
	}

	handler := api.NewHandler(appStore, webpushOptions, auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), catalog, nil, log)
	router := api.NewRouter(handler, api.RouterOptions{
		RateLimit:   rate.Limit(cfg.Server.RateLimitPerSec),
		RateBurst:   cfg.Server.RateLimitBurst,
		CORSOrigins: cfg.Server.CORSOrigins,
		Cache:       cache,
		Hub:         hub,
		Log:         log,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server ListenAndServe", err, nil)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Info("shutdown signal received, stopping services", nil)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown", err, nil)
	}

	log.Info("server gracefully stopped", nil)
}
