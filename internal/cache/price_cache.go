package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

const priceKeyPrefix = "mealshare:price:"

// PriceSnapshot — закэшированный ответ "текущая цена события".
type PriceSnapshot struct {
	EventID      string    `json:"event_id"`
	CurrentMinor int64     `json:"current_price_minor"`
	OrdersCount  int32     `json:"orders_count"`
	Currency     string    `json:"currency"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PriceCache — best-effort кэш текущей цены события поверх Redis.
// Источник истины всегда хранилище: ошибки кэша логируются и не
// пробрасываются, промах означает поход в базу.
type PriceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Entry
}

// NewPriceCache создаёт кэш цены с заданным TTL.
func NewPriceCache(client *redis.Client, ttl time.Duration, logger *log.Entry) *PriceCache {
	if logger == nil {
		logger = log.New().WithField("component", "price_cache")
	}
	return &PriceCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get возвращает снимок цены и признак попадания.
func (c *PriceCache) Get(ctx context.Context, eventID string) (PriceSnapshot, bool) {
	payload, err := c.client.Get(ctx, priceKeyPrefix+eventID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("event_id", eventID).Warn("price cache get failed")
		}
		return PriceSnapshot{}, false
	}

	var snapshot PriceSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		c.logger.WithError(err).WithField("event_id", eventID).Warn("price cache entry corrupted")
		return PriceSnapshot{}, false
	}
	return snapshot, true
}

// Set записывает снимок цены события.
func (c *PriceCache) Set(ctx context.Context, event domain.MealShareEvent) {
	snapshot := PriceSnapshot{
		EventID:      event.ID,
		CurrentMinor: event.CurrentMinor,
		OrdersCount:  event.OrdersCount,
		Currency:     event.Currency,
		UpdatedAt:    event.UpdatedAt,
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.WithError(err).WithField("event_id", event.ID).Warn("price cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, priceKeyPrefix+event.ID, payload, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("event_id", event.ID).Warn("price cache set failed")
	}
}

// Invalidate удаляет снимок цены; вызывается после каждого пересчёта.
func (c *PriceCache) Invalidate(ctx context.Context, eventID string) {
	if err := c.client.Del(ctx, priceKeyPrefix+eventID).Err(); err != nil {
		c.logger.WithError(err).WithField("event_id", eventID).Warn("price cache invalidate failed")
	}
}

// Ping проверяет доступность Redis.
func (c *PriceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis.
func (c *PriceCache) Close() error {
	return c.client.Close()
}
