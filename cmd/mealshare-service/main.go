package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/app"
	"github.com/vladislavdragonenkov/mealshare/internal/version"
)

// parseLogLevel переводит значение окружения в уровень logrus;
// пустое или неизвестное значение даёт Info.
func parseLogLevel(value string) log.Level {
	level, err := log.ParseLevel(strings.TrimSpace(strings.ToLower(value)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(parseLogLevel(os.Getenv("MEALSHARE_LOG_LEVEL")))
}

func main() {
	setupLogger()
	cfg := app.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
		"version":      version.String(),
	}).Info("запускаем meal-share сервис")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("meal-share сервис остановлен")
}
