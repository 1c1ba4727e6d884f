package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

func TestPaymentReferenceRepository_RecordAndExists(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewPaymentReferenceRepository(store)

	ref := domain.PaymentReference{
		ExternalRef: "psp-ref-1",
		OrderID:     "order-1",
		AmountMinor: 1950,
		RecordedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.Record(ref); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.Record(ref); !errors.Is(err, domain.ErrPaymentRefExists) {
		t.Fatalf("expected ErrPaymentRefExists, got %v", err)
	}

	seen, err := repo.Exists("psp-ref-1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !seen {
		t.Fatal("expected recorded reference to exist")
	}

	seen, err = repo.Exists("psp-ref-unknown")
	if err != nil {
		t.Fatalf("exists unknown: %v", err)
	}
	if seen {
		t.Fatal("unknown reference must not exist")
	}
}

func TestPaymentReferenceRepository_DeleteExpired(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewPaymentReferenceRepository(store)
	now := time.Now().UTC().Truncate(time.Microsecond)

	old := domain.PaymentReference{ExternalRef: "psp-old", OrderID: "o1", AmountMinor: 100, RecordedAt: now.Add(-48 * time.Hour)}
	fresh := domain.PaymentReference{ExternalRef: "psp-fresh", OrderID: "o2", AmountMinor: 100, RecordedAt: now}
	for _, ref := range []domain.PaymentReference{old, fresh} {
		if err := repo.Record(ref); err != nil {
			t.Fatalf("record %s: %v", ref.ExternalRef, err)
		}
	}

	deleted, err := repo.DeleteExpired(now.Add(-24*time.Hour), 100)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	if seen, _ := repo.Exists("psp-fresh"); !seen {
		t.Fatal("fresh reference must survive cleanup")
	}
}

func TestIdempotencyRepository_Lifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)
	ttl := time.Now().UTC().Add(time.Hour)

	record, err := repo.CreateProcessing("key-1", "hash-1", ttl)
	if err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("expected processing, got %s", record.Status)
	}

	if _, err := repo.CreateProcessing("key-1", "hash-1", ttl); !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if _, err := repo.CreateProcessing("key-1", "other-hash", ttl); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}

	if err := repo.MarkDone("key-1", []byte(`{"ok":true}`), 201); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	stored, err := repo.Get("key-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.IdempotencyStatusDone || stored.HTTPStatus != 201 {
		t.Fatalf("unexpected record: %+v", stored)
	}

	deleted, err := repo.DeleteExpired(ttl.Add(time.Minute), 100)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
}
