package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/cache"
	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/health"
	"github.com/vladislavdragonenkov/mealshare/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/mealshare/internal/service/payment"
	"github.com/vladislavdragonenkov/mealshare/internal/storage/memory"
	"github.com/vladislavdragonenkov/mealshare/internal/storage/postgres"
)

// Dependencies содержит собранные зависимости приложения.
type Dependencies struct {
	Store       domain.TxStore
	Events      domain.EventRepository
	Orders      domain.OrderRepository
	Idempotency domain.IdempotencyRepository
	References  domain.PaymentReferenceRepository
	Gateway     domain.PaymentGateway
	Producer    *kafka.Producer
	Prices      *cache.PriceCache
	Logger      *log.Entry

	pg *postgres.Store
}

// NewDependencies собирает хранилище, шлюз и опциональные внешние
// подсистемы (Kafka, Redis) по конфигурации.
// NOTE: платёжный шлюз — mock; в production заменяется клиентом провайдера.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Gateway: payment.NewMockGateway(),
		Logger:  logger,
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.pg = store
		deps.Store = store
		deps.Events = postgres.NewEventRepository(store)
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Idempotency = postgres.NewIdempotencyRepository(store)
		deps.References = postgres.NewPaymentReferenceRepository(store)
		logger.Info("postgres storage initialized")
	case StorageMemory:
		store := memory.NewStore()
		deps.Store = store
		deps.Events = memory.NewEventRepository(store)
		deps.Orders = memory.NewOrderRepository(store)
		deps.Idempotency = memory.NewIdempotencyRepository()
		deps.References = memory.NewPaymentReferenceRepository()
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if producer, err := initKafkaProducer(cfg.KafkaBrokers, logger); err == nil && producer != nil {
		deps.Producer = producer
	}

	if client := initRedis(ctx, cfg.RedisAddr, logger); client != nil {
		deps.Prices = cache.NewPriceCache(client, cfg.PriceCacheTTL, logger.WithField("component", "price-cache"))
	}

	return deps, nil
}

// RegisterHealthChecks подключает проверки внешних компонентов.
func (d *Dependencies) RegisterHealthChecks(handler *health.Handler) {
	if d.pg != nil {
		handler.RegisterChecker("postgres", health.NewPingChecker("postgres", d.pg.Ping))
	}
	if d.Prices != nil {
		handler.RegisterChecker("redis", health.NewPingChecker("redis", d.Prices.Ping))
	}
}

// Close освобождает внешние ресурсы в обратном порядке инициализации.
func (d *Dependencies) Close() {
	closeKafka(d.Producer, d.Logger)

	if d.Prices != nil {
		if err := d.Prices.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}

	if d.pg != nil {
		if err := d.pg.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
