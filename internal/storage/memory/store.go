package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

// Store — in-memory хранилище событий и заказов для тестов и локальной
// разработки. Реализует domain.TxStore: мутации события и его заказов
// сериализуются на per-event мьютексе, разные события независимы.
type Store struct {
	mu     sync.RWMutex
	events map[string]domain.MealShareEvent
	orders map[string]domain.OrderEntry

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		events: make(map[string]domain.MealShareEvent),
		orders: make(map[string]domain.OrderEntry),
		locks:  make(map[string]*sync.Mutex),
	}
}

// eventLock возвращает мьютекс события, создавая его при первом обращении.
func (s *Store) eventLock(eventID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.locks[eventID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[eventID] = lock
	}
	return lock
}

// WithEventLock выполняет fn под блокировкой события. Записи буферизуются
// в транзакции и применяются атомарно только если fn вернула nil —
// ошибка или таймаут провайдера не оставляет частичных инкрементов.
func (s *Store) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.EventTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	event, ok := s.events[eventID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrEventNotFound
	}

	tx := &eventTx{store: s, event: event, pending: make(map[string]domain.OrderEntry)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.eventDirty {
		tx.event.Version++
		s.events[eventID] = tx.event
	}
	for id, order := range tx.pending {
		s.orders[id] = order
	}

	return nil
}

// eventTx буферизует записи до успешного завершения fn.
type eventTx struct {
	store      *Store
	event      domain.MealShareEvent
	eventDirty bool
	pending    map[string]domain.OrderEntry
}

func (tx *eventTx) Event() domain.MealShareEvent {
	return tx.event
}

func (tx *eventTx) SaveEvent(event domain.MealShareEvent) error {
	if event.ID != tx.event.ID {
		return domain.ErrEventNotFound
	}
	tx.event = event
	tx.eventDirty = true
	return nil
}

func (tx *eventTx) GetOrder(id string) (domain.OrderEntry, error) {
	if order, ok := tx.pending[id]; ok {
		return order, nil
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	order, ok := tx.store.orders[id]
	if !ok || order.EventID != tx.event.ID {
		return domain.OrderEntry{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (tx *eventTx) ActiveOrderByCustomer(customerID string) (domain.OrderEntry, bool, error) {
	for _, order := range tx.snapshotOrders() {
		if order.CustomerID == customerID && order.Status.Active() {
			return order, true, nil
		}
	}
	return domain.OrderEntry{}, false, nil
}

func (tx *eventTx) ListActiveOrders() ([]domain.OrderEntry, error) {
	var result []domain.OrderEntry
	for _, order := range tx.snapshotOrders() {
		if order.Status.Active() {
			result = append(result, order)
		}
	}
	sortOrdersByCreation(result)
	return result, nil
}

func (tx *eventTx) ListPlacedOrders() ([]domain.OrderEntry, error) {
	var result []domain.OrderEntry
	for _, order := range tx.snapshotOrders() {
		if order.Status == domain.OrderStatusPlaced {
			result = append(result, order)
		}
	}
	sortOrdersByCreation(result)
	return result, nil
}

func (tx *eventTx) CreateOrder(order domain.OrderEntry) error {
	if order.EventID != tx.event.ID {
		return domain.ErrEventNotFound
	}

	tx.store.mu.RLock()
	_, exists := tx.store.orders[order.ID]
	tx.store.mu.RUnlock()
	if exists {
		return domain.ErrVersionConflict
	}
	if _, exists := tx.pending[order.ID]; exists {
		return domain.ErrVersionConflict
	}

	// Страховочная проверка уникальности активного заказа: аналог
	// partial unique index в postgres-хранилище.
	if order.Status.Active() {
		if _, found, err := tx.ActiveOrderByCustomer(order.CustomerID); err != nil {
			return err
		} else if found {
			return domain.ErrDuplicateActiveOrder
		}
	}

	tx.pending[order.ID] = order
	return nil
}

func (tx *eventTx) SaveOrder(order domain.OrderEntry) error {
	if _, err := tx.GetOrder(order.ID); err != nil {
		return err
	}
	tx.pending[order.ID] = order
	return nil
}

// snapshotOrders возвращает заказы события с учётом буфера транзакции.
func (tx *eventTx) snapshotOrders() []domain.OrderEntry {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	var result []domain.OrderEntry
	for id, order := range tx.store.orders {
		if order.EventID != tx.event.ID {
			continue
		}
		if pending, ok := tx.pending[id]; ok {
			result = append(result, pending)
			continue
		}
		result = append(result, order)
	}
	for id, order := range tx.pending {
		if _, ok := tx.store.orders[id]; !ok {
			result = append(result, order)
		}
	}
	return result
}

var _ domain.TxStore = (*Store)(nil)
var _ domain.EventTx = (*eventTx)(nil)
