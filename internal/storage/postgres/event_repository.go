package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

const opTimeout = 5 * time.Second

const eventColumns = `
	id, chef_id, item_id, event_at, cutoff_at,
	max_orders, min_orders,
	base_price_minor, min_price_minor, current_price_minor, currency,
	orders_count, status, version, created_at, updated_at
`

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository создаёт PostgreSQL-реализацию EventRepository.
func NewEventRepository(store *Store) domain.EventRepository {
	return &eventRepository{db: store.DB()}
}

func (r *eventRepository) Create(ctx context.Context, event domain.MealShareEvent) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_share_events (`+eventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		event.ID, event.ChefID, event.ItemID, event.EventAt, event.CutoffAt,
		event.MaxOrders, event.MinOrders,
		event.BasePriceMinor, event.MinPriceMinor, event.CurrentMinor, event.Currency,
		event.OrdersCount, string(event.Status), event.Version, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert meal share event: %w", err)
	}

	return nil
}

func (r *eventRepository) Get(ctx context.Context, id string) (domain.MealShareEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM meal_share_events
		WHERE id = $1
	`, id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MealShareEvent{}, domain.ErrEventNotFound
		}
		return domain.MealShareEvent{}, fmt.Errorf("select meal share event: %w", err)
	}

	return event, nil
}

func (r *eventRepository) ListByChef(ctx context.Context, chefID string, limit int) ([]domain.MealShareEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT ` + eventColumns + `
		FROM meal_share_events
		WHERE chef_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", chefID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, chefID)
	}
	if err != nil {
		return nil, fmt.Errorf("list meal share events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.MealShareEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal share event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal share event rows: %w", err)
	}

	return events, nil
}

// ListDueForCutoff использует частичный индекс по cutoff_at для статусов,
// принимающих заказы.
func (r *eventRepository) ListDueForCutoff(ctx context.Context, before time.Time, limit int) ([]domain.MealShareEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT ` + eventColumns + `
		FROM meal_share_events
		WHERE status IN ('scheduled', 'open') AND cutoff_at <= $1
		ORDER BY cutoff_at ASC, id ASC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", before, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, before)
	}
	if err != nil {
		return nil, fmt.Errorf("list due meal share events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.MealShareEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal share event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal share event rows: %w", err)
	}

	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (domain.MealShareEvent, error) {
	var (
		event  domain.MealShareEvent
		status string
	)
	err := row.Scan(
		&event.ID, &event.ChefID, &event.ItemID, &event.EventAt, &event.CutoffAt,
		&event.MaxOrders, &event.MinOrders,
		&event.BasePriceMinor, &event.MinPriceMinor, &event.CurrentMinor, &event.Currency,
		&event.OrdersCount, &status, &event.Version, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return domain.MealShareEvent{}, err
	}
	event.Status = domain.EventStatus(status)
	return event, nil
}

var _ domain.EventRepository = (*eventRepository)(nil)
