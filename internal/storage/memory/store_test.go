package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

func seedEvent(t *testing.T, store *Store) domain.MealShareEvent {
	t.Helper()

	now := time.Now().UTC()
	event := domain.MealShareEvent{
		ID:             "event-1",
		ChefID:         "chef-1",
		ItemID:         "item-1",
		EventAt:        now.Add(48 * time.Hour),
		CutoffAt:       now.Add(24 * time.Hour),
		MaxOrders:      10,
		MinOrders:      2,
		BasePriceMinor: 2000,
		MinPriceMinor:  1000,
		CurrentMinor:   2000,
		Currency:       "USD",
		Status:         domain.EventStatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := NewEventRepository(store).Create(context.Background(), event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func placedOrder(id, customerID string) domain.OrderEntry {
	now := time.Now().UTC()
	return domain.OrderEntry{
		ID:              id,
		EventID:         "event-1",
		CustomerID:      customerID,
		Quantity:        1,
		UnitPriceMinor:  2000,
		PricePaidMinor:  2000,
		Currency:        "USD",
		AuthorizationID: "auth-" + id,
		Status:          domain.OrderStatusPlaced,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestWithEventLock_UnknownEvent(t *testing.T) {
	store := NewStore()
	err := store.WithEventLock(context.Background(), "missing", func(tx domain.EventTx) error {
		t.Fatal("fn must not run for missing event")
		return nil
	})
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestWithEventLock_CommitsOnSuccess(t *testing.T) {
	store := NewStore()
	seedEvent(t, store)

	err := store.WithEventLock(context.Background(), "event-1", func(tx domain.EventTx) error {
		event := tx.Event()
		event.OrdersCount = 1
		if err := tx.SaveEvent(event); err != nil {
			return err
		}
		return tx.CreateOrder(placedOrder("order-1", "customer-1"))
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	saved, err := NewEventRepository(store).Get(context.Background(), "event-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if saved.OrdersCount != 1 {
		t.Fatalf("orders_count = %d, want 1", saved.OrdersCount)
	}
	if saved.Version != 1 {
		t.Fatalf("version = %d, want 1", saved.Version)
	}
	if _, err := NewOrderRepository(store).Get(context.Background(), "order-1"); err != nil {
		t.Fatalf("get order: %v", err)
	}
}

func TestWithEventLock_RollsBackOnError(t *testing.T) {
	store := NewStore()
	seedEvent(t, store)

	sentinel := errors.New("gateway timeout")
	err := store.WithEventLock(context.Background(), "event-1", func(tx domain.EventTx) error {
		event := tx.Event()
		event.OrdersCount = 5
		if err := tx.SaveEvent(event); err != nil {
			return err
		}
		if err := tx.CreateOrder(placedOrder("order-1", "customer-1")); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	// Ни инкремент счётчика, ни заказ не должны пережить ошибку.
	saved, _ := NewEventRepository(store).Get(context.Background(), "event-1")
	if saved.OrdersCount != 0 {
		t.Fatalf("orders_count leaked: %d", saved.OrdersCount)
	}
	if _, err := NewOrderRepository(store).Get(context.Background(), "order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("order leaked: %v", err)
	}
}

func TestWithEventLock_DuplicateActiveOrderRejected(t *testing.T) {
	store := NewStore()
	seedEvent(t, store)

	create := func(orderID string) error {
		return store.WithEventLock(context.Background(), "event-1", func(tx domain.EventTx) error {
			return tx.CreateOrder(placedOrder(orderID, "customer-1"))
		})
	}

	if err := create("order-1"); err != nil {
		t.Fatalf("first order: %v", err)
	}
	if err := create("order-2"); !errors.Is(err, domain.ErrDuplicateActiveOrder) {
		t.Fatalf("expected ErrDuplicateActiveOrder, got %v", err)
	}
}

func TestWithEventLock_TxSeesOwnWrites(t *testing.T) {
	store := NewStore()
	seedEvent(t, store)

	err := store.WithEventLock(context.Background(), "event-1", func(tx domain.EventTx) error {
		if err := tx.CreateOrder(placedOrder("order-1", "customer-1")); err != nil {
			return err
		}

		order, err := tx.GetOrder("order-1")
		if err != nil {
			return err
		}
		order.Status = domain.OrderStatusConfirmed
		if err := tx.SaveOrder(order); err != nil {
			return err
		}

		active, err := tx.ListActiveOrders()
		if err != nil {
			return err
		}
		if len(active) != 1 || active[0].Status != domain.OrderStatusConfirmed {
			t.Fatalf("tx must see buffered writes, got %+v", active)
		}

		placed, err := tx.ListPlacedOrders()
		if err != nil {
			return err
		}
		if len(placed) != 0 {
			t.Fatalf("confirmed order still listed as placed: %+v", placed)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}
}

func TestWithEventLock_SerializesCounterUpdates(t *testing.T) {
	store := NewStore()
	seedEvent(t, store)

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = store.WithEventLock(context.Background(), "event-1", func(tx domain.EventTx) error {
				event := tx.Event()
				event.OrdersCount++
				return tx.SaveEvent(event)
			})
		}()
	}
	wg.Wait()

	saved, _ := NewEventRepository(store).Get(context.Background(), "event-1")
	if saved.OrdersCount != workers {
		t.Fatalf("lost updates: orders_count = %d, want %d", saved.OrdersCount, workers)
	}
}

func TestPaymentReferenceRepository(t *testing.T) {
	repo := NewPaymentReferenceRepository()

	ref := domain.PaymentReference{ExternalRef: "pay-1", OrderID: "order-1", AmountMinor: 2000}
	if err := repo.Record(ref); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.Record(ref); !errors.Is(err, domain.ErrPaymentRefExists) {
		t.Fatalf("expected ErrPaymentRefExists, got %v", err)
	}

	exists, err := repo.Exists("pay-1")
	if err != nil || !exists {
		t.Fatalf("expected ref to exist, got %v %v", exists, err)
	}
	exists, _ = repo.Exists("pay-2")
	if exists {
		t.Fatal("unknown ref must not exist")
	}

	removed, err := repo.DeleteExpired(time.Now().UTC().Add(time.Hour), 0)
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 removed, got %d %v", removed, err)
	}
}
