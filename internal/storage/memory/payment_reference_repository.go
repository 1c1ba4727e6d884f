package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

// paymentReferenceRepositoryInMemory — in-memory леджер обработанных
// внешних платёжных ссылок.
type paymentReferenceRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.PaymentReference
}

// NewPaymentReferenceRepository возвращает in-memory реализацию леджера.
func NewPaymentReferenceRepository() domain.PaymentReferenceRepository {
	return &paymentReferenceRepositoryInMemory{
		items: make(map[string]domain.PaymentReference),
	}
}

// Record сохраняет ссылку; дубликат возвращает ErrPaymentRefExists.
func (r *paymentReferenceRepositoryInMemory) Record(ref domain.PaymentReference) error {
	externalRef := strings.TrimSpace(ref.ExternalRef)
	if externalRef == "" {
		return domain.ErrPaymentRefMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[externalRef]; exists {
		return domain.ErrPaymentRefExists
	}

	if ref.RecordedAt.IsZero() {
		ref.RecordedAt = time.Now().UTC()
	}
	ref.ExternalRef = externalRef
	r.items[externalRef] = ref
	return nil
}

// Exists проверяет, обрабатывалась ли внешняя ссылка.
func (r *paymentReferenceRepositoryInMemory) Exists(externalRef string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[strings.TrimSpace(externalRef)]
	return ok, nil
}

// DeleteExpired удаляет записи старше before, не более limit за вызов.
func (r *paymentReferenceRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, ref := range r.items {
		if ref.RecordedAt.After(before) {
			continue
		}

		delete(r.items, key)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}

	return removed, nil
}

var _ domain.PaymentReferenceRepository = (*paymentReferenceRepositoryInMemory)(nil)
