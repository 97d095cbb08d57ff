package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/app"
	"github.com/vladislavdragonenkov/storefront-cart/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(parseLevel(level))
}

func parseLevel(level string) log.Level {
	if level == "" {
		return log.InfoLevel
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}

func main() {
	setupLogger(os.Getenv("CART_LOG_LEVEL"))

	cfg, err := app.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"launcher":     cfg.Launcher,
		"version":      version.String(),
	}).Info("запускаем сервис корзин")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервис корзин остановлен")
}
