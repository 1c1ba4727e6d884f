package kafka

import "time"

// EventType определяет тип события жизненного цикла.
type EventType string

const (
	// События заказов.
	EventTypeOrderPlaced        EventType = "order.placed"
	EventTypeOrderConfirmed     EventType = "order.confirmed"
	EventTypeOrderAdjusted      EventType = "order.adjusted"
	EventTypeOrderCancelled     EventType = "order.cancelled"
	EventTypeOrderRefunded      EventType = "order.refunded"
	EventTypeOrderCaptureFailed EventType = "order.capture_failed"

	// События meal-share событий.
	EventTypeEventCreated   EventType = "event.created"
	EventTypeEventClosed    EventType = "event.closed"
	EventTypeEventCancelled EventType = "event.cancelled"
	EventTypePriceUpdated   EventType = "event.price_updated"
)

// Topics для Kafka.
const (
	TopicOrderEvents = "mealshare.order.events"
	TopicEventEvents = "mealshare.event.events"
)

// OrderEvent — событие жизненного цикла заказа.
type OrderEvent struct {
	EventType   EventType              `json:"event_type"`
	OrderID     string                 `json:"order_id"`
	MealEventID string                 `json:"meal_event_id"`
	CustomerID  string                 `json:"customer_id"`
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// MealEvent — событие жизненного цикла meal-share события (включая смену цены).
type MealEvent struct {
	EventType    EventType              `json:"event_type"`
	MealEventID  string                 `json:"meal_event_id"`
	ChefID       string                 `json:"chef_id"`
	Status       string                 `json:"status"`
	CurrentMinor int64                  `json:"current_price_minor"`
	OrdersCount  int32                  `json:"orders_count"`
	Timestamp    time.Time              `json:"timestamp"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создаёт событие заказа.
func NewOrderEvent(eventType EventType, orderID, mealEventID, customerID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderID:     orderID,
		MealEventID: mealEventID,
		CustomerID:  customerID,
		Status:      status,
		Timestamp:   time.Now().UTC(),
		Metadata:    metadata,
	}
}

// NewMealEvent создаёт событие meal-share события.
func NewMealEvent(eventType EventType, mealEventID, chefID, status string, currentMinor int64, ordersCount int32) *MealEvent {
	return &MealEvent{
		EventType:    eventType,
		MealEventID:  mealEventID,
		ChefID:       chefID,
		Status:       status,
		CurrentMinor: currentMinor,
		OrdersCount:  ordersCount,
		Timestamp:    time.Now().UTC(),
	}
}
