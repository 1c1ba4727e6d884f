package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

// eventRepositoryInMemory — нетранзакционное чтение/создание событий поверх Store.
type eventRepositoryInMemory struct {
	store *Store
}

// NewEventRepository возвращает in-memory реализацию EventRepository.
func NewEventRepository(store *Store) domain.EventRepository {
	return &eventRepositoryInMemory{store: store}
}

// Create сохраняет новое событие, если ID ещё не занят.
func (r *eventRepositoryInMemory) Create(ctx context.Context, event domain.MealShareEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.events[event.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.store.events[event.ID] = event
	return nil
}

// Get возвращает событие или ErrEventNotFound.
func (r *eventRepositoryInMemory) Get(ctx context.Context, id string) (domain.MealShareEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	event, ok := r.store.events[id]
	if !ok {
		return domain.MealShareEvent{}, domain.ErrEventNotFound
	}
	return event, nil
}

// ListByChef возвращает события шефа, новые первыми.
func (r *eventRepositoryInMemory) ListByChef(ctx context.Context, chefID string, limit int) ([]domain.MealShareEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.MealShareEvent, 0)
	for _, event := range r.store.events {
		if event.ChefID != chefID {
			continue
		}
		result = append(result, event)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// ListDueForCutoff возвращает принимающие заказы события с cutoff не позже before.
func (r *eventRepositoryInMemory) ListDueForCutoff(ctx context.Context, before time.Time, limit int) ([]domain.MealShareEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.MealShareEvent, 0)
	for _, event := range r.store.events {
		if event.Status != domain.EventStatusScheduled && event.Status != domain.EventStatusOpen {
			continue
		}
		if event.CutoffAt.After(before) {
			continue
		}
		result = append(result, event)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CutoffAt.Equal(result[j].CutoffAt) {
			return result[i].CutoffAt.Before(result[j].CutoffAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

var _ domain.EventRepository = (*eventRepositoryInMemory)(nil)
