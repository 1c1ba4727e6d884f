package lifecycle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/messaging/kafka"
)

// Публикация выполняется после фиксации транзакции и никогда не ломает
// основную операцию: ошибка брокера только логируется.

func (s *Service) publishOrderEvent(eventType kafka.EventType, order domain.OrderEntry, metadata map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	event := kafka.NewOrderEvent(eventType, order.ID, order.EventID, order.CustomerID, string(order.Status), metadata)
	if err := s.publisher.Publish(kafka.TopicOrderEvents, order.EventID, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event")
	}
}

func (s *Service) publishMealEvent(eventType kafka.EventType, event domain.MealShareEvent) {
	if s.publisher == nil {
		return
	}
	payload := kafka.NewMealEvent(eventType, event.ID, event.ChefID, string(event.Status), event.CurrentMinor, event.OrdersCount)
	if err := s.publisher.Publish(kafka.TopicEventEvents, event.ID, payload); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"event_id":   event.ID,
		}).Warn("failed to publish meal event")
	}
}

func (s *Service) publishPriceUpdate(event domain.MealShareEvent) {
	s.publishMealEvent(kafka.EventTypePriceUpdated, event)
}

// Обёртки над платёжным шлюзом: единая точка для метрик и логирования.

func (s *Service) authorize(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (string, error) {
	start := time.Now()
	authID, err := s.gateway.Authorize(ctx, amountMinor, currency, idempotencyKey)
	s.observeGateway("authorize", start, err)
	return authID, err
}

func (s *Service) modify(ctx context.Context, authorizationID string, newAmountMinor int64, idempotencyKey string) error {
	start := time.Now()
	err := s.gateway.Modify(ctx, authorizationID, newAmountMinor, idempotencyKey)
	s.observeGateway("modify", start, err)
	return err
}

func (s *Service) capture(ctx context.Context, authorizationID string) (string, error) {
	start := time.Now()
	captureRef, err := s.gateway.Capture(ctx, authorizationID)
	s.observeGateway("capture", start, err)
	return captureRef, err
}

func (s *Service) void(ctx context.Context, authorizationID, reason, idempotencyKey string) error {
	start := time.Now()
	err := s.gateway.Void(ctx, authorizationID, reason, idempotencyKey)
	s.observeGateway("void", start, err)
	return err
}

func (s *Service) refund(ctx context.Context, authorizationID, idempotencyKey string) (string, error) {
	start := time.Now()
	refundID, err := s.gateway.Refund(ctx, authorizationID, idempotencyKey)
	s.observeGateway("refund", start, err)
	return refundID, err
}

func (s *Service) observeGateway(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordGatewayCall(operation, time.Since(start), err)
	}
	if err != nil {
		s.logger.WithError(err).WithField("operation", operation).Warn("payment gateway call failed")
	}
}
