package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

func TestRecomputePrice(t *testing.T) {
	// base=20.00, min=10.00 → диапазон 10.00, шаг 0.50.
	const base, min = 2000, 1000

	cases := []struct {
		name  string
		count int32
		want  int64
	}{
		{name: "zero orders", count: 0, want: 2000},
		{name: "single order keeps base", count: 1, want: 2000},
		{name: "second order applies one step", count: 2, want: 1950},
		{name: "ten orders", count: 10, want: 1550},
		{name: "back to nine after cancel", count: 9, want: 1600},
		{name: "floor at min price", count: 100, want: 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.RecomputePrice(base, min, tc.count)
			if got != tc.want {
				t.Fatalf("RecomputePrice(%d) = %d, want %d", tc.count, got, tc.want)
			}
		})
	}
}

func TestRecomputePriceDegenerateRange(t *testing.T) {
	// base == min: скидке некуда падать.
	if got := domain.RecomputePrice(1500, 1500, 7); got != 1500 {
		t.Fatalf("expected flat price 1500, got %d", got)
	}
}

func TestRecomputePriceStaysInRange(t *testing.T) {
	const base, min = 3333, 1111
	for count := int32(0); count <= 64; count++ {
		got := domain.RecomputePrice(base, min, count)
		if got < min || got > base {
			t.Fatalf("count=%d: price %d escaped [%d, %d]", count, got, min, base)
		}
	}
}
