package domain

import "time"

// EventStatus описывает жизненный цикл meal-share события.
type EventStatus string

const (
	// EventStatusScheduled — событие создано шефом, заказы ещё не открыты.
	EventStatusScheduled EventStatus = "scheduled"
	// EventStatusOpen — приём заказов открыт.
	EventStatusOpen EventStatus = "open"
	// EventStatusClosed — дедлайн прошёл, capture/void решение принято.
	EventStatusClosed EventStatus = "closed"
	// EventStatusInProgress — шеф готовит заказы.
	EventStatusInProgress EventStatus = "in_progress"
	// EventStatusCompleted — событие завершено.
	EventStatusCompleted EventStatus = "completed"
	// EventStatusCancelled — событие отменено, все активные заказы отменяются каскадно.
	EventStatusCancelled EventStatus = "cancelled"
)

// eventTransitions кодирует допустимые административные переходы статусов.
// Переход в cancelled обрабатывается отдельно: он разрешён из любого нетерминального статуса.
var eventTransitions = map[EventStatus][]EventStatus{
	EventStatusScheduled:  {EventStatusOpen, EventStatusClosed},
	EventStatusOpen:       {EventStatusClosed},
	EventStatusClosed:     {EventStatusInProgress, EventStatusCompleted},
	EventStatusInProgress: {EventStatusCompleted},
}

// CanTransition проверяет, допустим ли переход события из from в to.
func (from EventStatus) CanTransition(to EventStatus) bool {
	if to == EventStatusCancelled {
		return !from.Terminal()
	}
	for _, next := range eventTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal сообщает, является ли статус конечным.
func (s EventStatus) Terminal() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

// MealShareEvent — ограниченное по вместимости предложение шефа,
// на которое заказывают несколько клиентов. Событие владеет счётчиком
// подтверждённых заказов и текущей ценой.
type MealShareEvent struct {
	ID     string
	ChefID string
	ItemID string

	// EventAt — время проведения события; CutoffAt — дедлайн приёма заказов,
	// строго раньше EventAt.
	EventAt  time.Time
	CutoffAt time.Time

	// MaxOrders ограничивает суммарное количество порций.
	// MinOrders — порог жизнеспособности: если к дедлайну подтверждено меньше,
	// авторизации отменяются вместо capture.
	MaxOrders int32
	MinOrders int32

	// Цены в минимальных денежных единицах. CurrentMinor всегда
	// в диапазоне [MinPriceMinor, BasePriceMinor] и меняется только
	// через пересчёт ценообразования под блокировкой события.
	BasePriceMinor int64
	MinPriceMinor  int64
	CurrentMinor   int64
	Currency       string

	// OrdersCount — сумма количеств подтверждённых заказов.
	OrdersCount int32

	Status    EventStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты события и возвращает список замечаний.
func (e *MealShareEvent) ValidateInvariants() []error {
	var errs []error

	if e.ChefID == "" {
		errs = append(errs, ErrChefRequired)
	}
	if e.ItemID == "" {
		errs = append(errs, ErrItemRequired)
	}
	if e.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if e.EventAt.IsZero() || e.CutoffAt.IsZero() {
		errs = append(errs, ErrScheduleRequired)
	} else if !e.CutoffAt.Before(e.EventAt) {
		errs = append(errs, ErrCutoffAfterEvent)
	}
	if e.MaxOrders < 1 {
		errs = append(errs, ErrMaxOrdersInvalid)
	}
	if e.MinOrders < 1 {
		errs = append(errs, ErrMinOrdersInvalid)
	}
	if e.BasePriceMinor < 0 || e.MinPriceMinor < 0 {
		errs = append(errs, ErrPriceNegative)
	}
	if e.MinPriceMinor > e.BasePriceMinor {
		errs = append(errs, ErrMinAboveBase)
	}
	if e.CurrentMinor < e.MinPriceMinor || e.CurrentMinor > e.BasePriceMinor {
		errs = append(errs, ErrCurrentPriceOutOfRange)
	}
	if e.OrdersCount < 0 || e.OrdersCount > e.MaxOrders {
		errs = append(errs, ErrOrdersCountOutOfRange)
	}

	return errs
}

// AcceptingOrders сообщает, принимает ли событие новые заказы в момент now.
func (e *MealShareEvent) AcceptingOrders(now time.Time) bool {
	if e.Status != EventStatusScheduled && e.Status != EventStatusOpen {
		return false
	}
	return now.Before(e.CutoffAt)
}

// PricingLocked запрещает менять BasePriceMinor/MinPriceMinor после появления
// подтверждённых заказов; меняться может только CurrentMinor через пересчёт.
func (e *MealShareEvent) PricingLocked() bool {
	return e.OrdersCount > 0
}
