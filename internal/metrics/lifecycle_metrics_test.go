package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewLifecycleMetricsWithIsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newLifecycleMetricsWithRegisterer(reg)

	if m == nil {
		t.Fatal("newLifecycleMetricsWithRegisterer should not return nil")
	}
	if m.ordersPlaced == nil || m.ordersConfirmed == nil || m.ordersCancelled == nil {
		t.Fatal("order counters should not be nil")
	}
	if m.priceRecomputes == nil || m.recomputeDuration == nil {
		t.Fatal("recompute collectors should not be nil")
	}
	if m.gatewayCallDuration == nil || m.gatewayErrors == nil {
		t.Fatal("gateway collectors should not be nil")
	}
}

func TestLifecycleMetricsReregisterReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newLifecycleMetricsWithRegisterer(reg)
	second := newLifecycleMetricsWithRegisterer(reg)

	// Повторная регистрация должна переиспользовать коллекторы, а не паниковать.
	first.RecordOrderPlaced()
	second.RecordOrderPlaced()

	if got := testutil.ToFloat64(first.ordersPlaced); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestRecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newLifecycleMetricsWithRegisterer(reg)

	m.RecordOrderConfirmed()
	m.RecordOrderConfirmed()
	m.RecordOrderRefunded()
	m.RecordCaptureFailed()
	m.RecordCallbackDuplicate()

	if got := testutil.ToFloat64(m.ordersConfirmed); got != 2 {
		t.Fatalf("ordersConfirmed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ordersRefunded); got != 1 {
		t.Fatalf("ordersRefunded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ordersCaptureFailed); got != 1 {
		t.Fatalf("ordersCaptureFailed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.callbackDuplicates); got != 1 {
		t.Fatalf("callbackDuplicates = %v, want 1", got)
	}
}

func TestRecordGatewayCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newLifecycleMetricsWithRegisterer(reg)

	m.RecordGatewayCall("authorize", 5*time.Millisecond, nil)
	m.RecordGatewayCall("authorize", 5*time.Millisecond, errors.New("boom"))
	m.RecordGatewayCall("refund", time.Millisecond, nil)

	if got := testutil.ToFloat64(m.gatewayErrors.WithLabelValues("authorize")); got != 1 {
		t.Fatalf("authorize errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.gatewayErrors.WithLabelValues("refund")); got != 0 {
		t.Fatalf("refund errors = %v, want 0", got)
	}
}

func TestRecordCutoffRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newLifecycleMetricsWithRegisterer(reg)

	m.RecordCutoffRun("captured")
	m.RecordCutoffRun("captured")
	m.RecordCutoffRun("voided")

	if got := testutil.ToFloat64(m.cutoffRuns.WithLabelValues("captured")); got != 2 {
		t.Fatalf("captured runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cutoffRuns.WithLabelValues("voided")); got != 1 {
		t.Fatalf("voided runs = %v, want 1", got)
	}
}
