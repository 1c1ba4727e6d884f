package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/messaging/kafka"
)

// Cancel отменяет заказ: placed-заказ получает void авторизации, confirmed —
// refund с декрементом счётчика события и пересчётом цены. Пересчитанная
// цена может ВЫРАСТИ для оставшихся участников: так устроена групповая
// скидка. Повторная отмена уже терминального заказа — no-op: возвращается
// заказ в его терминальном состоянии. Итоговое состояние читается под
// блокировкой события, без отдельного чтения после отмены.
func (s *Service) Cancel(ctx context.Context, orderID, reason, idempotencyKey string) (domain.OrderEntry, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.OrderEntry{}, err
	}

	key := idempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	var (
		outcome domain.OrderStatus
		result  domain.OrderEntry
		event   domain.MealShareEvent
	)
	err = s.store.WithEventLock(ctx, order.EventID, func(tx domain.EventTx) error {
		ord, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}
		ev := tx.Event()
		now := s.now()

		status, cancelled, err := s.cancelOrderLocked(ctx, tx, ord, &ev, reason, key, now)
		if err != nil {
			return err
		}
		outcome = status
		result = cancelled
		event = ev
		return nil
	})
	if err != nil {
		return domain.OrderEntry{}, err
	}

	switch outcome {
	case domain.OrderStatusCancelled:
		if s.metrics != nil {
			s.metrics.RecordOrderCancelled()
		}
		s.publishOrderEvent(kafka.EventTypeOrderCancelled, result, map[string]interface{}{
			"reason": reason,
		})
	case domain.OrderStatusRefunded:
		if s.metrics != nil {
			s.metrics.RecordOrderRefunded()
		}
		s.publishOrderEvent(kafka.EventTypeOrderRefunded, result, map[string]interface{}{
			"reason":    reason,
			"refund_id": result.RefundID,
		})
		s.publishPriceUpdate(event)
		s.invalidatePrice(ctx, event.ID)
	default:
		s.logger.WithField("order_id", orderID).Debug("cancel skipped, order already terminal")
		return result, nil
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"event_id": event.ID,
		"outcome":  outcome,
		"reason":   reason,
	}).Info("order cancelled")

	return result, nil
}

// CancelEvent отменяет событие целиком: каскадно закрывает все активные
// заказы (void для placed, refund для confirmed) и переводит событие
// в cancelled. Всё — в одной транзакции: частичная отмена не фиксируется.
func (s *Service) CancelEvent(ctx context.Context, eventID, reason, idempotencyKey string) error {
	key := idempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	var (
		applied   bool
		event     domain.MealShareEvent
		cancelled []domain.OrderEntry
		refunded  []domain.OrderEntry
	)
	err := s.store.WithEventLock(ctx, eventID, func(tx domain.EventTx) error {
		ev := tx.Event()
		if ev.Status == domain.EventStatusCancelled {
			// Повторный запрос отмены: всё уже сделано.
			return nil
		}
		if !ev.Status.CanTransition(domain.EventStatusCancelled) {
			return domain.ErrInvalidEventState
		}

		now := s.now()
		active, err := tx.ListActiveOrders()
		if err != nil {
			return err
		}
		for _, ord := range active {
			// Ключ провайдера выводится из базового: по ключу на заказ,
			// иначе повтор каскада переиспользует чужой результат.
			status, done, err := s.cancelOrderLocked(ctx, tx, ord, &ev, reason, key+":"+ord.ID, now)
			if err != nil {
				return err
			}
			switch status {
			case domain.OrderStatusCancelled:
				cancelled = append(cancelled, done)
			case domain.OrderStatusRefunded:
				refunded = append(refunded, done)
			}
		}

		ev.Status = domain.EventStatusCancelled
		ev.UpdatedAt = now
		if err := s.propagatePrice(tx, &ev, now); err != nil {
			return err
		}

		applied = true
		event = ev
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	for _, ord := range cancelled {
		if s.metrics != nil {
			s.metrics.RecordOrderCancelled()
		}
		s.publishOrderEvent(kafka.EventTypeOrderCancelled, ord, map[string]interface{}{"reason": reason})
	}
	for _, ord := range refunded {
		if s.metrics != nil {
			s.metrics.RecordOrderRefunded()
		}
		s.publishOrderEvent(kafka.EventTypeOrderRefunded, ord, map[string]interface{}{
			"reason":    reason,
			"refund_id": ord.RefundID,
		})
	}
	s.publishMealEvent(kafka.EventTypeEventCancelled, event)
	s.invalidatePrice(ctx, event.ID)

	s.logger.WithFields(log.Fields{
		"event_id":  eventID,
		"cancelled": len(cancelled),
		"refunded":  len(refunded),
		"reason":    reason,
	}).Info("event cancelled")

	return nil
}

// cancelOrderLocked выполняет отмену одного заказа под уже взятой блокировкой
// события. Возвращает итоговый статус, либо пустой статус для no-op.
func (s *Service) cancelOrderLocked(
	ctx context.Context,
	tx domain.EventTx,
	ord domain.OrderEntry,
	event *domain.MealShareEvent,
	reason, idempotencyKey string,
	now time.Time,
) (domain.OrderStatus, domain.OrderEntry, error) {
	switch ord.Status {
	case domain.OrderStatusCancelled, domain.OrderStatusRefunded,
		domain.OrderStatusCaptureFailed, domain.OrderStatusCompleted:
		return "", ord, nil

	case domain.OrderStatusPlaced:
		if err := s.void(ctx, ord.AuthorizationID, reason, idempotencyKey); err != nil {
			return "", ord, err
		}
		ord.Status = domain.OrderStatusCancelled
		ord.CancelReason = reason
		ord.UpdatedAt = now
		if err := tx.SaveOrder(ord); err != nil {
			return "", ord, err
		}
		return domain.OrderStatusCancelled, ord, nil

	case domain.OrderStatusConfirmed:
		refundID, err := s.refund(ctx, ord.AuthorizationID, idempotencyKey)
		if err != nil {
			return "", ord, err
		}
		ord.Status = domain.OrderStatusRefunded
		ord.RefundID = refundID
		ord.CancelReason = reason
		ord.UpdatedAt = now
		if err := tx.SaveOrder(ord); err != nil {
			return "", ord, err
		}
		event.OrdersCount -= ord.Quantity
		if err := s.propagatePrice(tx, event, now); err != nil {
			return "", ord, err
		}
		return domain.OrderStatusRefunded, ord, nil

	default:
		return "", ord, domain.ErrInvalidOrderState
	}
}
