package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// initRedis подключается к Redis если addr не пустой.
// Кэш цены best-effort: при недоступном Redis сервис стартует без кэша.
func initRedis(ctx context.Context, addr string, logger *log.Entry) *redis.Client {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, continuing without price cache")
		_ = client.Close()
		return nil
	}

	logger.WithField("addr", addr).Info("redis client initialized")
	return client
}
