package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/mealshare/internal/cache"
	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/service/lifecycle"
)

// EventHandler обслуживает meal-share события.
type EventHandler struct {
	service *lifecycle.Service
	prices  *cache.PriceCache // опционально
}

// NewEventHandler создаёт обработчик событий. prices может быть nil.
func NewEventHandler(service *lifecycle.Service, prices *cache.PriceCache) *EventHandler {
	return &EventHandler{service: service, prices: prices}
}

type createEventRequest struct {
	ChefID         string    `json:"chef_id"`
	ItemID         string    `json:"item_id"`
	EventAt        time.Time `json:"event_at"`
	CutoffAt       time.Time `json:"cutoff_at"`
	MaxOrders      int32     `json:"max_orders"`
	MinOrders      int32     `json:"min_orders"`
	BasePriceMinor int64     `json:"base_price_minor"`
	MinPriceMinor  int64     `json:"min_price_minor"`
	Currency       string    `json:"currency"`
}

type eventResponse struct {
	EventID        string    `json:"event_id"`
	ChefID         string    `json:"chef_id"`
	ItemID         string    `json:"item_id"`
	EventAt        time.Time `json:"event_at"`
	CutoffAt       time.Time `json:"cutoff_at"`
	MaxOrders      int32     `json:"max_orders"`
	MinOrders      int32     `json:"min_orders"`
	BasePriceMinor int64     `json:"base_price_minor"`
	MinPriceMinor  int64     `json:"min_price_minor"`
	CurrentMinor   int64     `json:"current_price_minor"`
	Currency       string    `json:"currency"`
	OrdersCount    int32     `json:"orders_count"`
	Status         string    `json:"status"`
}

func toEventResponse(event domain.MealShareEvent) eventResponse {
	return eventResponse{
		EventID:        event.ID,
		ChefID:         event.ChefID,
		ItemID:         event.ItemID,
		EventAt:        event.EventAt,
		CutoffAt:       event.CutoffAt,
		MaxOrders:      event.MaxOrders,
		MinOrders:      event.MinOrders,
		BasePriceMinor: event.BasePriceMinor,
		MinPriceMinor:  event.MinPriceMinor,
		CurrentMinor:   event.CurrentMinor,
		Currency:       event.Currency,
		OrdersCount:    event.OrdersCount,
		Status:         string(event.Status),
	}
}

// Create заводит новое событие.
func (h *EventHandler) Create(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	event, err := h.service.CreateEvent(c.Request.Context(), lifecycle.CreateEventCommand{
		ChefID:         req.ChefID,
		ItemID:         req.ItemID,
		EventAt:        req.EventAt,
		CutoffAt:       req.CutoffAt,
		MaxOrders:      req.MaxOrders,
		MinOrders:      req.MinOrders,
		BasePriceMinor: req.BasePriceMinor,
		MinPriceMinor:  req.MinPriceMinor,
		Currency:       req.Currency,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEventResponse(event))
}

// Get возвращает событие.
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.service.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}

type priceResponse struct {
	EventID      string `json:"event_id"`
	CurrentMinor int64  `json:"current_price_minor"`
	OrdersCount  int32  `json:"orders_count"`
	Currency     string `json:"currency"`
}

// Price возвращает текущую цену события; читает из кэша, при промахе
// идёт в хранилище и прогревает кэш.
func (h *EventHandler) Price(c *gin.Context) {
	eventID := c.Param("id")

	if h.prices != nil {
		if snapshot, ok := h.prices.Get(c.Request.Context(), eventID); ok {
			c.JSON(http.StatusOK, priceResponse{
				EventID:      snapshot.EventID,
				CurrentMinor: snapshot.CurrentMinor,
				OrdersCount:  snapshot.OrdersCount,
				Currency:     snapshot.Currency,
			})
			return
		}
	}

	event, err := h.service.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if h.prices != nil {
		h.prices.Set(c.Request.Context(), event)
	}
	c.JSON(http.StatusOK, priceResponse{
		EventID:      event.ID,
		CurrentMinor: event.CurrentMinor,
		OrdersCount:  event.OrdersCount,
		Currency:     event.Currency,
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus выполняет административный переход статуса события.
func (h *EventHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	event, err := h.service.UpdateEventStatus(c.Request.Context(), c.Param("id"), domain.EventStatus(req.Status))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}

type updatePricingRequest struct {
	BasePriceMinor int64 `json:"base_price_minor"`
	MinPriceMinor  int64 `json:"min_price_minor"`
}

// UpdatePricing меняет базовую и минимальную цены до первого подтверждения.
func (h *EventHandler) UpdatePricing(c *gin.Context) {
	var req updatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	event, err := h.service.UpdateEventPricing(c.Request.Context(), c.Param("id"), req.BasePriceMinor, req.MinPriceMinor)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}

type cancelEventRequest struct {
	Reason string `json:"reason"`
}

// Cancel отменяет событие с каскадной отменой активных заказов.
func (h *EventHandler) Cancel(c *gin.Context) {
	var req cancelEventRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "event cancelled by chef"
	}

	key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	if err := h.service.CancelEvent(c.Request.Context(), c.Param("id"), req.Reason, key); err != nil {
		writeDomainError(c, err)
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}

// Cutoff запускает capture-or-void решение в дедлайн события.
func (h *EventHandler) Cutoff(c *gin.Context) {
	if err := h.service.OnCutoffReached(c.Request.Context(), c.Param("id")); err != nil {
		writeDomainError(c, err)
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}
