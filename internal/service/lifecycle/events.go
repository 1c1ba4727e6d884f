package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/messaging/kafka"
)

// CreateEventCommand — параметры создания meal-share события.
type CreateEventCommand struct {
	ChefID         string
	ItemID         string
	EventAt        time.Time
	CutoffAt       time.Time
	MaxOrders      int32
	MinOrders      int32
	BasePriceMinor int64
	MinPriceMinor  int64
	Currency       string
}

// CreateEvent создаёт событие в статусе scheduled. Текущая цена
// инициализируется базовой: скидок без подтверждённых заказов нет.
func (s *Service) CreateEvent(ctx context.Context, cmd CreateEventCommand) (domain.MealShareEvent, error) {
	now := s.now()
	event := domain.MealShareEvent{
		ID:             uuid.NewString(),
		ChefID:         cmd.ChefID,
		ItemID:         cmd.ItemID,
		EventAt:        cmd.EventAt,
		CutoffAt:       cmd.CutoffAt,
		MaxOrders:      cmd.MaxOrders,
		MinOrders:      cmd.MinOrders,
		BasePriceMinor: cmd.BasePriceMinor,
		MinPriceMinor:  cmd.MinPriceMinor,
		CurrentMinor:   cmd.BasePriceMinor,
		Currency:       cmd.Currency,
		Status:         domain.EventStatusScheduled,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if errs := event.ValidateInvariants(); len(errs) > 0 {
		return domain.MealShareEvent{}, errors.Join(errs...)
	}

	if err := s.events.Create(ctx, event); err != nil {
		return domain.MealShareEvent{}, err
	}

	s.publishMealEvent(kafka.EventTypeEventCreated, event)
	s.logger.WithFields(log.Fields{
		"event_id": event.ID,
		"chef_id":  event.ChefID,
	}).Info("event created")

	return event, nil
}

// GetEvent возвращает событие по идентификатору.
func (s *Service) GetEvent(ctx context.Context, eventID string) (domain.MealShareEvent, error) {
	return s.events.Get(ctx, eventID)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.OrderEntry, error) {
	return s.orders.Get(ctx, orderID)
}

// UpdateEventStatus выполняет административный переход статуса события.
// Переход в cancelled идёт через CancelEvent: у него каскадная семантика.
func (s *Service) UpdateEventStatus(ctx context.Context, eventID string, to domain.EventStatus) (domain.MealShareEvent, error) {
	if to == domain.EventStatusCancelled {
		return domain.MealShareEvent{}, domain.ErrInvalidEventState
	}

	var event domain.MealShareEvent
	err := s.store.WithEventLock(ctx, eventID, func(tx domain.EventTx) error {
		ev := tx.Event()
		if ev.Status == to {
			event = ev
			return nil
		}
		if !ev.Status.CanTransition(to) {
			return domain.ErrInvalidEventState
		}
		ev.Status = to
		ev.UpdatedAt = s.now()
		if err := tx.SaveEvent(ev); err != nil {
			return err
		}
		event = ev
		return nil
	})
	if err != nil {
		return domain.MealShareEvent{}, err
	}

	if to == domain.EventStatusClosed {
		s.publishMealEvent(kafka.EventTypeEventClosed, event)
	}
	return event, nil
}

// UpdateEventPricing меняет базовую и минимальную цены события. Запрещено
// после первого подтверждённого заказа: участники уже видели цену.
func (s *Service) UpdateEventPricing(ctx context.Context, eventID string, baseMinor, minMinor int64) (domain.MealShareEvent, error) {
	if baseMinor < 0 || minMinor < 0 {
		return domain.MealShareEvent{}, domain.ErrPriceNegative
	}
	if minMinor > baseMinor {
		return domain.MealShareEvent{}, domain.ErrMinAboveBase
	}

	var event domain.MealShareEvent
	err := s.store.WithEventLock(ctx, eventID, func(tx domain.EventTx) error {
		ev := tx.Event()
		if ev.PricingLocked() {
			return domain.ErrPricingLocked
		}
		ev.BasePriceMinor = baseMinor
		ev.MinPriceMinor = minMinor
		ev.CurrentMinor = domain.RecomputePrice(baseMinor, minMinor, ev.OrdersCount)
		ev.UpdatedAt = s.now()
		if err := tx.SaveEvent(ev); err != nil {
			return err
		}
		event = ev
		return nil
	})
	if err != nil {
		return domain.MealShareEvent{}, err
	}

	s.publishPriceUpdate(event)
	s.invalidatePrice(ctx, event.ID)
	return event, nil
}
