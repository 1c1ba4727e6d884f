package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

type paymentReferenceRepository struct {
	db *sql.DB
}

// NewPaymentReferenceRepository создаёт PostgreSQL-реализацию леджера
// обработанных внешних платёжных ссылок.
func NewPaymentReferenceRepository(store *Store) domain.PaymentReferenceRepository {
	return &paymentReferenceRepository{db: store.DB()}
}

func (r *paymentReferenceRepository) Record(ref domain.PaymentReference) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_references (external_ref, order_id, amount_minor, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, ref.ExternalRef, ref.OrderID, ref.AmountMinor, ref.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentRefExists
		}
		return fmt.Errorf("insert payment reference: %w", err)
	}

	return nil
}

func (r *paymentReferenceRepository) Exists(externalRef string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var ref string
	err := r.db.QueryRowContext(ctx, `
		SELECT external_ref FROM payment_references WHERE external_ref = $1
	`, externalRef).Scan(&ref)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check payment reference: %w", err)
}

func (r *paymentReferenceRepository) DeleteExpired(before time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)
	if limit > 0 {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM payment_references
			WHERE external_ref IN (
				SELECT external_ref
				FROM payment_references
				WHERE recorded_at <= $1
				ORDER BY recorded_at ASC
				LIMIT $2
			)
		`, before, limit)
	} else {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM payment_references
			WHERE recorded_at <= $1
		`, before)
	}
	if err != nil {
		return 0, fmt.Errorf("delete expired payment references: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("payment reference rows affected: %w", err)
	}
	return int(affected), nil
}

var _ domain.PaymentReferenceRepository = (*paymentReferenceRepository)(nil)
