package domain

import (
	"context"
	"time"
)

// EventRepository описывает нетранзакционный доступ к событиям.
type EventRepository interface {
	// Create сохраняет новое событие. Возвращает ошибку, если ID уже занят.
	Create(ctx context.Context, event MealShareEvent) error
	// Get возвращает событие или ErrEventNotFound.
	Get(ctx context.Context, id string) (MealShareEvent, error)
	// ListByChef возвращает события шефа, новые первыми.
	ListByChef(ctx context.Context, chefID string, limit int) ([]MealShareEvent, error)
	// ListDueForCutoff возвращает принимающие заказы события, чей cutoff
	// наступил не позже before. Используется триггером capture-or-void.
	ListDueForCutoff(ctx context.Context, before time.Time, limit int) ([]MealShareEvent, error)
}

// OrderRepository описывает нетранзакционный доступ к заказам.
// Используется для чтения вне блокировки (например, чтобы найти event_id
// заказа перед захватом блокировки события).
type OrderRepository interface {
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, id string) (OrderEntry, error)
	// ListByCustomer возвращает заказы клиента, новые первыми.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]OrderEntry, error)
}

// EventTx — операции, доступные под пессимистичной блокировкой события.
// Все мутации счётчика, текущей цены и заказов события проходят только
// через этот интерфейс.
type EventTx interface {
	// Event возвращает заблокированный снимок события.
	Event() MealShareEvent
	// SaveEvent записывает событие в рамках транзакции.
	SaveEvent(event MealShareEvent) error
	// GetOrder возвращает заказ события или ErrOrderNotFound.
	GetOrder(id string) (OrderEntry, error)
	// ActiveOrderByCustomer ищет активный заказ клиента на это событие.
	ActiveOrderByCustomer(customerID string) (OrderEntry, bool, error)
	// ListActiveOrders возвращает заказы в статусах placed/confirmed.
	ListActiveOrders() ([]OrderEntry, error)
	// ListPlacedOrders возвращает заказы, ожидающие capture/void решения.
	ListPlacedOrders() ([]OrderEntry, error)
	// CreateOrder сохраняет новый заказ; уникальность активного заказа
	// на пару (customer, event) дополнительно обеспечивает хранилище.
	CreateOrder(order OrderEntry) error
	// SaveOrder записывает изменения заказа.
	SaveOrder(order OrderEntry) error
}

// TxStore выполняет fn внутри одной транзакции, удерживающей пессимистичную
// блокировку строки события от первой записи до последней (включая
// распространение цены на соседние заказы). Разные события независимы
// и обрабатываются параллельно; глобальной блокировки нет.
type TxStore interface {
	WithEventLock(ctx context.Context, eventID string, fn func(tx EventTx) error) error
}
