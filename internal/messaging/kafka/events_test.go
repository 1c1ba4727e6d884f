package kafka

import (
	"encoding/json"
	"testing"
)

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(EventTypeOrderConfirmed, "order-1", "event-1", "customer-1", "confirmed", map[string]interface{}{
		"quantity": 2,
	})

	if event.EventType != EventTypeOrderConfirmed {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.OrderID != "order-1" || event.MealEventID != "event-1" {
		t.Fatal("identifiers not propagated")
	}
	if event.Timestamp.IsZero() {
		t.Fatal("timestamp must be set")
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if decoded["event_type"] != string(EventTypeOrderConfirmed) {
		t.Fatalf("unexpected serialized event_type %v", decoded["event_type"])
	}
}

func TestNewMealEventOmitsEmptyMetadata(t *testing.T) {
	event := NewMealEvent(EventTypePriceUpdated, "event-1", "chef-1", "open", 1950, 2)

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if _, ok := decoded["metadata"]; ok {
		t.Fatal("empty metadata must be omitted")
	}
	if decoded["current_price_minor"].(float64) != 1950 {
		t.Fatalf("unexpected price %v", decoded["current_price_minor"])
	}
}
