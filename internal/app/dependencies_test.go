package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewDependencies_Memory(t *testing.T) {
	cfg := DefaultConfig()
	logger := log.WithField("test", "deps")

	deps, err := NewDependencies(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer deps.Close()

	if deps.Store == nil {
		t.Error("store must be initialized")
	}
	if deps.Events == nil || deps.Orders == nil {
		t.Error("repositories must be initialized")
	}
	if deps.Idempotency == nil || deps.References == nil {
		t.Error("ledger repositories must be initialized")
	}
	if deps.Gateway == nil {
		t.Error("payment gateway must be initialized")
	}
	if deps.Producer != nil {
		t.Error("kafka must stay disabled without brokers")
	}
	if deps.Prices != nil {
		t.Error("price cache must stay disabled without redis")
	}
}

func TestNewDependencies_UnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err == nil {
		deps.Close()
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestDependencies_CloseIsSafe(t *testing.T) {
	deps, err := NewDependencies(context.Background(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Без внешних подсистем Close не должен паниковать.
	deps.Close()
}
