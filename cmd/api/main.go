package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/airmeet-sync/internal/airmeet"
	"github.com/jwalitptl/airmeet-sync/internal/config"
	"github.com/jwalitptl/airmeet-sync/internal/email"
	debugHandler "github.com/jwalitptl/airmeet-sync/internal/handler/debug"
	healthHandler "github.com/jwalitptl/airmeet-sync/internal/handler/health"
	webhookHandler "github.com/jwalitptl/airmeet-sync/internal/handler/webhook"
	"github.com/jwalitptl/airmeet-sync/internal/model"
	"github.com/jwalitptl/airmeet-sync/internal/repository/devrev"
	"github.com/jwalitptl/airmeet-sync/internal/router"
	mappingService "github.com/jwalitptl/airmeet-sync/internal/service/mapping"
	notificationService "github.com/jwalitptl/airmeet-sync/internal/service/notification"
	syncService "github.com/jwalitptl/airmeet-sync/internal/service/sync"
	"github.com/jwalitptl/airmeet-sync/pkg/buffer"
	"github.com/jwalitptl/airmeet-sync/pkg/logger"
	"github.com/jwalitptl/airmeet-sync/pkg/messaging"
	redisBroker "github.com/jwalitptl/airmeet-sync/pkg/messaging/redis"
	"github.com/jwalitptl/airmeet-sync/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	})
	zl := appLogger.Zerolog()

	m := metrics.NewMetrics("airmeet_sync", "pipeline")

	// Outbound clients
	airmeetClient := airmeet.NewClient(airmeet.Config{
		BaseURL: cfg.Airmeet.BaseURL,
		APIKey:  cfg.Airmeet.APIKey,
		Timeout: cfg.Airmeet.Timeout,
	}, zl, m)
	devrevClient := devrev.NewClient(devrev.Config{
		BaseURL:         cfg.DevRev.BaseURL,
		APIKey:          cfg.DevRev.APIKey,
		Timeout:         cfg.DevRev.Timeout,
		ContactCacheTTL: cfg.DevRev.ContactCacheTTL,
	}, zl, m)

	// Debug buffers, owned here and injected explicitly
	mappedItems := buffer.NewRing[model.MappedItem](cfg.Debug.BufferSize)

	// Optional notification channels
	var broker messaging.Broker = messaging.NopBroker{}
	if cfg.Redis.URL != "" {
		broker, err = redisBroker.NewRedisBroker(redisBroker.Config{URL: cfg.Redis.URL}, zl)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}
	var emailSvc email.Service
	if cfg.SMTP.Host != "" {
		emailSvc = email.NewService(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	// Services
	mapper := mappingService.NewService(mappingService.NewBufferRecorder(mappedItems))
	notifier := notificationService.NewService(cfg.Notifications, cfg.Debug.BufferSize, notificationService.Options{
		Broker:   broker,
		Channel:  cfg.Redis.Channel,
		EmailSvc: emailSvc,
	}, zl, m)
	syncSvc := syncService.NewService(airmeetClient, devrevClient, devrevClient, devrevClient, mapper, notifier, zl)

	// Handlers
	webhookH := webhookHandler.NewHandler(syncSvc, m)
	debugH := debugHandler.NewHandler(mappedItems, notifier, airmeetClient, devrevClient)
	healthH := healthHandler.NewHandler(version)

	r := router.NewRouter(webhookH, debugH, healthH, router.Config{
		VerifySignatures: cfg.WebhookVerification,
		WebhookSecret:    cfg.WebhookSecret,
		DebugTokenSecret: cfg.Debug.TokenSecret,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		RequestTimeout:   cfg.Server.RequestTimeout,
		MaxBodySize:      cfg.Server.MaxBodySize,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
