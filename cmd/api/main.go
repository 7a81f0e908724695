package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/manifest-festivals/manifest/internal/config"
	"github.com/manifest-festivals/manifest/internal/database"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/notification"
	"github.com/manifest-festivals/manifest/internal/recommend"
	"github.com/manifest-festivals/manifest/internal/redis"
	"github.com/manifest-festivals/manifest/internal/services/gateway"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	gin.SetMode(gin.ReleaseMode)
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Redis is optional
	var rdb *redis.Client
	if client := redis.NewClient(cfg); client.Ping(ctx) == nil {
		rdb = client
		defer rdb.Close()
	} else {
		logging.Warn().Str("host", cfg.RedisHost).Msg("redis unavailable, running without redemption lock and report cache")
		_ = client.Close()
	}

	// Recommendation snapshot, built once before serving
	engine := recommend.New(db)
	if err := engine.Init(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize recommendations")
	}
	go engine.Run(ctx, cfg.RecommendRefresh)

	// Notification dispatcher
	publisher := notification.NewAMQPPublisher(cfg.RabbitMQURL, cfg.NotificationQueue)
	defer publisher.Close()
	dispatcher := notification.NewDispatcher(publisher, cfg.NotificationBuffer)
	dispatcher.Start(ctx)

	svc := gateway.NewService(gateway.Deps{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Notifier:    dispatcher,
		Recommender: engine,
	})
	r := gateway.NewRouter(svc, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.APIPort).Msg("API starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("failed to start API")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown failed")
	}
	dispatcher.Stop()
}
