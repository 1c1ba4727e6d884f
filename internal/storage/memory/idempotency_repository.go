package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

const defaultIdempotencyTTL = 24 * time.Hour

// idempotencyLedger хранит записи Idempotency-Key для HTTP-слоя:
// хеш запроса, статус обработки и сохранённый ответ для реплея.
type idempotencyLedger struct {
	mu      sync.RWMutex
	records map[string]*domain.IdempotencyRecord
}

// NewIdempotencyRepository создаёт in-memory реализацию IdempotencyRepository.
func NewIdempotencyRepository() domain.IdempotencyRepository {
	return &idempotencyLedger{
		records: make(map[string]*domain.IdempotencyRecord),
	}
}

func normalizeIdempotencyKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", domain.ErrIdempotencyKeyRequired
	}
	return key, nil
}

func (l *idempotencyLedger) CreateProcessing(key, requestHash string, ttlAt time.Time) (domain.IdempotencyRecord, error) {
	key, err := normalizeIdempotencyKey(key)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyRequestHashRequired
	}

	now := time.Now().UTC()
	if ttlAt.IsZero() {
		ttlAt = now.Add(defaultIdempotencyTTL)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.records[key]; ok {
		// Повтор с другим телом — конфликт, с тем же — реплей.
		if existing.RequestHash != requestHash {
			return snapshotIdempotencyRecord(existing), domain.ErrIdempotencyHashMismatch
		}
		return snapshotIdempotencyRecord(existing), domain.ErrIdempotencyKeyAlreadyExists
	}

	record := &domain.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdempotencyStatusProcessing,
		TTLAt:       ttlAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	l.records[key] = record
	return snapshotIdempotencyRecord(record), nil
}

func (l *idempotencyLedger) Get(key string) (domain.IdempotencyRecord, error) {
	key, err := normalizeIdempotencyKey(key)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	record, ok := l.records[key]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
	}
	return snapshotIdempotencyRecord(record), nil
}

func (l *idempotencyLedger) MarkDone(key string, responseBody []byte, httpStatus int) error {
	return l.finish(key, domain.IdempotencyStatusDone, responseBody, httpStatus)
}

func (l *idempotencyLedger) MarkFailed(key string, responseBody []byte, httpStatus int) error {
	return l.finish(key, domain.IdempotencyStatusFailed, responseBody, httpStatus)
}

func (l *idempotencyLedger) finish(key string, status domain.IdempotencyStatus, responseBody []byte, httpStatus int) error {
	key, err := normalizeIdempotencyKey(key)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[key]
	if !ok {
		return domain.ErrIdempotencyKeyNotFound
	}

	record.Status = status
	record.ResponseBody = append([]byte(nil), responseBody...)
	record.HTTPStatus = httpStatus
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *idempotencyLedger) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []string
	for key, record := range l.records {
		if !record.TTLAt.After(before) {
			expired = append(expired, key)
			if limit > 0 && len(expired) >= limit {
				break
			}
		}
	}
	for _, key := range expired {
		delete(l.records, key)
	}
	return len(expired), nil
}

func snapshotIdempotencyRecord(src *domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := *src
	dst.ResponseBody = append([]byte(nil), src.ResponseBody...)
	return dst
}

var _ domain.IdempotencyRepository = (*idempotencyLedger)(nil)
