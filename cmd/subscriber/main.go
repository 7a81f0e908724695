package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/manifest-festivals/manifest/internal/config"
	"github.com/manifest-festivals/manifest/internal/email"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/notification"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := email.NewNotifier(email.NewSMTPSender(cfg))

	logging.Info().Str("queue", cfg.NotificationQueue).Msg("subscriber starting")
	err = notification.Consume(ctx, cfg.RabbitMQURL, cfg.NotificationQueue, notifier.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("subscriber stopped")
	}
	logging.Info().Msg("subscriber stopped")
}
