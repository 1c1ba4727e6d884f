package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

const orderColumns = `
	id, event_id, customer_id, quantity,
	unit_price_minor, price_paid_minor, currency,
	authorization_id, capture_ref, refund_id,
	price_adjustment_processed, status, cancel_reason,
	created_at, updated_at
`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.OrderEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM order_entries
		WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderEntry{}, domain.ErrOrderNotFound
		}
		return domain.OrderEntry{}, fmt.Errorf("select order entry: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.OrderEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM order_entries
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list order entries: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.OrderEntry, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order entry row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order entry rows: %w", err)
	}

	return orders, nil
}

func scanOrder(row rowScanner) (domain.OrderEntry, error) {
	var (
		order  domain.OrderEntry
		status string
	)
	err := row.Scan(
		&order.ID, &order.EventID, &order.CustomerID, &order.Quantity,
		&order.UnitPriceMinor, &order.PricePaidMinor, &order.Currency,
		&order.AuthorizationID, &order.CaptureRef, &order.RefundID,
		&order.PriceAdjustmentProcessed, &status, &order.CancelReason,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.OrderEntry{}, err
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
