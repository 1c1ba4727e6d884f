package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

// WithEventLock открывает транзакцию и берёт пессимистичную блокировку строки
// события через SELECT ... FOR UPDATE. Все мутации внутри fn выполняются
// в этой транзакции: конкурирующие операции над одним событием ждут на
// блокировке строки, разные события обрабатываются параллельно.
func (s *Store) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.EventTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event tx: %w", err)
	}

	row := sqlTx.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM meal_share_events
		WHERE id = $1
		FOR UPDATE
	`, eventID)

	event, err := scanEvent(row)
	if err != nil {
		_ = sqlTx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("lock meal share event: %w", err)
	}

	etx := &eventTx{ctx: ctx, tx: sqlTx, event: event}
	if err := fn(etx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit event tx: %w", err)
	}
	return nil
}

type eventTx struct {
	ctx   context.Context
	tx    *sql.Tx
	event domain.MealShareEvent
}

func (t *eventTx) Event() domain.MealShareEvent {
	return t.event
}

func (t *eventTx) SaveEvent(event domain.MealShareEvent) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE meal_share_events
		SET event_at = $1,
		    cutoff_at = $2,
		    max_orders = $3,
		    min_orders = $4,
		    base_price_minor = $5,
		    min_price_minor = $6,
		    current_price_minor = $7,
		    orders_count = $8,
		    status = $9,
		    version = version + 1,
		    updated_at = $10
		WHERE id = $11
	`,
		event.EventAt, event.CutoffAt,
		event.MaxOrders, event.MinOrders,
		event.BasePriceMinor, event.MinPriceMinor, event.CurrentMinor,
		event.OrdersCount, string(event.Status), event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("update meal share event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("event rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrEventNotFound
	}

	event.Version = t.event.Version + 1
	t.event = event
	return nil
}

func (t *eventTx) GetOrder(id string) (domain.OrderEntry, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT `+orderColumns+`
		FROM order_entries
		WHERE id = $1 AND event_id = $2
	`, id, t.event.ID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderEntry{}, domain.ErrOrderNotFound
		}
		return domain.OrderEntry{}, fmt.Errorf("select order entry in tx: %w", err)
	}
	return order, nil
}

func (t *eventTx) ActiveOrderByCustomer(customerID string) (domain.OrderEntry, bool, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT `+orderColumns+`
		FROM order_entries
		WHERE event_id = $1 AND customer_id = $2 AND status IN ('placed', 'confirmed')
	`, t.event.ID, customerID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderEntry{}, false, nil
		}
		return domain.OrderEntry{}, false, fmt.Errorf("select active order: %w", err)
	}
	return order, true, nil
}

func (t *eventTx) ListActiveOrders() ([]domain.OrderEntry, error) {
	return t.listByStatusFilter(`status IN ('placed', 'confirmed')`)
}

func (t *eventTx) ListPlacedOrders() ([]domain.OrderEntry, error) {
	return t.listByStatusFilter(`status = 'placed'`)
}

func (t *eventTx) listByStatusFilter(statusFilter string) ([]domain.OrderEntry, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT `+orderColumns+`
		FROM order_entries
		WHERE event_id = $1 AND `+statusFilter+`
		ORDER BY created_at ASC, id ASC
	`, t.event.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders in tx: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.OrderEntry, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order entry in tx: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order entries in tx: %w", err)
	}
	return orders, nil
}

func (t *eventTx) CreateOrder(order domain.OrderEntry) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO order_entries (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		order.ID, order.EventID, order.CustomerID, order.Quantity,
		order.UnitPriceMinor, order.PricePaidMinor, order.Currency,
		order.AuthorizationID, order.CaptureRef, order.RefundID,
		order.PriceAdjustmentProcessed, string(order.Status), order.CancelReason,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateActiveOrder
		}
		return fmt.Errorf("insert order entry: %w", err)
	}
	return nil
}

func (t *eventTx) SaveOrder(order domain.OrderEntry) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE order_entries
		SET quantity = $1,
		    unit_price_minor = $2,
		    price_paid_minor = $3,
		    authorization_id = $4,
		    capture_ref = $5,
		    refund_id = $6,
		    price_adjustment_processed = $7,
		    status = $8,
		    cancel_reason = $9,
		    updated_at = $10
		WHERE id = $11 AND event_id = $12
	`,
		order.Quantity,
		order.UnitPriceMinor, order.PricePaidMinor,
		order.AuthorizationID, order.CaptureRef, order.RefundID,
		order.PriceAdjustmentProcessed, string(order.Status), order.CancelReason,
		order.UpdatedAt,
		order.ID, t.event.ID,
	)
	if err != nil {
		return fmt.Errorf("update order entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

var _ domain.TxStore = (*Store)(nil)
var _ domain.EventTx = (*eventTx)(nil)
