package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

// helper для создания валидного события.
func makeEvent() domain.MealShareEvent {
	now := time.Now().UTC()
	return domain.MealShareEvent{
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
		OrdersCount:    0,
		Status:         domain.EventStatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestEventValidateInvariants_Ok(t *testing.T) {
	event := makeEvent()
	if errs := event.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestEventValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(e *domain.MealShareEvent)
	}{
		{
			name: "no chef",
			mut: func(e *domain.MealShareEvent) {
				e.ChefID = ""
			},
		},
		{
			name: "cutoff after event time",
			mut: func(e *domain.MealShareEvent) {
				e.CutoffAt = e.EventAt.Add(time.Hour)
			},
		},
		{
			name: "cutoff equals event time",
			mut: func(e *domain.MealShareEvent) {
				e.CutoffAt = e.EventAt
			},
		},
		{
			name: "max orders zero",
			mut: func(e *domain.MealShareEvent) {
				e.MaxOrders = 0
			},
		},
		{
			name: "min price above base",
			mut: func(e *domain.MealShareEvent) {
				e.MinPriceMinor = e.BasePriceMinor + 1
				e.CurrentMinor = e.BasePriceMinor
			},
		},
		{
			name: "current price below min",
			mut: func(e *domain.MealShareEvent) {
				e.CurrentMinor = e.MinPriceMinor - 1
			},
		},
		{
			name: "orders count above max",
			mut: func(e *domain.MealShareEvent) {
				e.OrdersCount = e.MaxOrders + 1
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := makeEvent()
			tc.mut(&event)
			if len(event.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestEventStatusTransitions(t *testing.T) {
	cases := []struct {
		from    domain.EventStatus
		to      domain.EventStatus
		allowed bool
	}{
		{domain.EventStatusScheduled, domain.EventStatusOpen, true},
		{domain.EventStatusOpen, domain.EventStatusClosed, true},
		{domain.EventStatusClosed, domain.EventStatusInProgress, true},
		{domain.EventStatusInProgress, domain.EventStatusCompleted, true},
		{domain.EventStatusScheduled, domain.EventStatusCancelled, true},
		{domain.EventStatusInProgress, domain.EventStatusCancelled, true},
		{domain.EventStatusCompleted, domain.EventStatusCancelled, false},
		{domain.EventStatusCancelled, domain.EventStatusOpen, false},
		{domain.EventStatusOpen, domain.EventStatusCompleted, false},
		{domain.EventStatusCompleted, domain.EventStatusOpen, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("CanTransition(%s→%s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestEventAcceptingOrders(t *testing.T) {
	event := makeEvent()
	before := event.CutoffAt.Add(-time.Minute)
	after := event.CutoffAt.Add(time.Minute)

	if !event.AcceptingOrders(before) {
		t.Fatal("scheduled event before cutoff must accept orders")
	}
	if event.AcceptingOrders(after) {
		t.Fatal("event after cutoff must not accept orders")
	}
	if event.AcceptingOrders(event.CutoffAt) {
		t.Fatal("cutoff instant itself must reject orders")
	}

	event.Status = domain.EventStatusClosed
	if event.AcceptingOrders(before) {
		t.Fatal("closed event must not accept orders")
	}
}

func TestEventPricingLocked(t *testing.T) {
	event := makeEvent()
	if event.PricingLocked() {
		t.Fatal("pricing must be mutable while no orders confirmed")
	}
	event.OrdersCount = 1
	if !event.PricingLocked() {
		t.Fatal("pricing must lock once orders_count > 0")
	}
}
