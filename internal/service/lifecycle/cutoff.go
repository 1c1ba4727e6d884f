package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/messaging/kafka"
)

const cancelReasonBelowMinimum = "minimum orders not met"

// OnCutoffReached выполняет решение capture-or-void в дедлайн события.
//
// Если подтверждённые плюс размещённые порции достигают минимума, каждый
// placed-заказ списывается; отклонённое списание переводит заказ в
// терминальный capture_failed с best-effort void остатка холда. Если
// минимум не набран — все авторизации аннулируются, заказы отменяются.
// В обоих случаях событие переходит в closed.
//
// Метод безопасен к повторному вызову: заказы, оставшиеся placed из-за
// временной недоступности шлюза, дообрабатываются следующим запуском,
// уже решённые — пропускаются.
func (s *Service) OnCutoffReached(ctx context.Context, eventID string) error {
	var (
		applied       bool
		outcome       string
		event         domain.MealShareEvent
		confirmed     []domain.OrderEntry
		cancelled     []domain.OrderEntry
		captureFailed []domain.OrderEntry
		pending       int
	)
	err := s.store.WithEventLock(ctx, eventID, func(tx domain.EventTx) error {
		ev := tx.Event()
		switch ev.Status {
		case domain.EventStatusCancelled, domain.EventStatusCompleted, domain.EventStatusInProgress:
			// Решение в дедлайн уже не требуется.
			return nil
		}

		now := s.now()
		placed, err := tx.ListPlacedOrders()
		if err != nil {
			return err
		}

		var placedQty int32
		for _, ord := range placed {
			placedQty += ord.Quantity
		}
		viable := ev.OrdersCount+placedQty >= ev.MinOrders

		if viable {
			outcome = "captured"
			for _, ord := range placed {
				captureRef, err := s.capture(ctx, ord.AuthorizationID)
				if err != nil {
					if errors.Is(err, domain.ErrGatewayDeclined) {
						// Отклонённое списание терминально; остаток холда
						// снимаем best-effort, статус важнее.
						if voidErr := s.void(ctx, ord.AuthorizationID, "capture declined", "cutoff-void:"+ord.ID); voidErr != nil {
							s.logger.WithError(voidErr).WithField("order_id", ord.ID).
								Warn("failed to void declined authorization")
						}
						ord.Status = domain.OrderStatusCaptureFailed
						ord.CancelReason = "capture declined at cutoff"
						ord.UpdatedAt = now
						if err := tx.SaveOrder(ord); err != nil {
							return err
						}
						captureFailed = append(captureFailed, ord)
						continue
					}
					// Временная ошибка: заказ остаётся placed, повторный
					// запуск дедлайна доберёт его.
					s.logger.WithError(err).WithField("order_id", ord.ID).
						Warn("capture failed, leaving order for retry")
					pending++
					continue
				}

				ord.Status = domain.OrderStatusConfirmed
				ord.CaptureRef = captureRef
				ord.UpdatedAt = now
				if err := tx.SaveOrder(ord); err != nil {
					return err
				}
				ev.OrdersCount += ord.Quantity
				confirmed = append(confirmed, ord)
			}
		} else {
			outcome = "voided"
			for _, ord := range placed {
				if err := s.void(ctx, ord.AuthorizationID, cancelReasonBelowMinimum, "cutoff:"+eventID+":"+ord.ID); err != nil {
					s.logger.WithError(err).WithField("order_id", ord.ID).
						Warn("void failed, leaving order for retry")
					pending++
					continue
				}
				ord.Status = domain.OrderStatusCancelled
				ord.CancelReason = cancelReasonBelowMinimum
				ord.UpdatedAt = now
				if err := tx.SaveOrder(ord); err != nil {
					return err
				}
				cancelled = append(cancelled, ord)
			}
		}

		if ev.Status == domain.EventStatusScheduled || ev.Status == domain.EventStatusOpen {
			ev.Status = domain.EventStatusClosed
		}
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
		if s.metrics != nil {
			s.metrics.RecordCutoffRun("skipped")
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordCutoffRun(outcome)
	}
	for _, ord := range confirmed {
		if s.metrics != nil {
			s.metrics.RecordOrderConfirmed()
		}
		s.publishOrderEvent(kafka.EventTypeOrderConfirmed, ord, map[string]interface{}{
			"capture_ref": ord.CaptureRef,
		})
	}
	for _, ord := range cancelled {
		if s.metrics != nil {
			s.metrics.RecordOrderCancelled()
		}
		s.publishOrderEvent(kafka.EventTypeOrderCancelled, ord, map[string]interface{}{
			"reason": cancelReasonBelowMinimum,
		})
	}
	for _, ord := range captureFailed {
		if s.metrics != nil {
			s.metrics.RecordCaptureFailed()
		}
		s.publishOrderEvent(kafka.EventTypeOrderCaptureFailed, ord, nil)
	}
	s.publishMealEvent(kafka.EventTypeEventClosed, event)
	s.publishPriceUpdate(event)
	s.invalidatePrice(ctx, event.ID)

	s.logger.WithFields(log.Fields{
		"event_id":       eventID,
		"outcome":        outcome,
		"confirmed":      len(confirmed),
		"cancelled":      len(cancelled),
		"capture_failed": len(captureFailed),
		"pending":        pending,
	}).Info("cutoff processed")

	return nil
}

// RunDueCutoffs обрабатывает все события, чей дедлайн наступил не позже
// before. Возвращает число обработанных событий; ошибка одного события не
// прерывает остальные, возвращается первая встреченная.
func (s *Service) RunDueCutoffs(ctx context.Context, before time.Time, limit int) (int, error) {
	due, err := s.events.ListDueForCutoff(ctx, before, limit)
	if err != nil {
		return 0, fmt.Errorf("list due events: %w", err)
	}

	processed := 0
	var firstErr error
	for _, event := range due {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}
		if err := s.OnCutoffReached(ctx, event.ID); err != nil {
			s.logger.WithError(err).WithField("event_id", event.ID).
				Warn("cutoff processing failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		processed++
	}

	return processed, firstErr
}
