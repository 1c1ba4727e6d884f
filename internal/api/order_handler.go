package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/service/lifecycle"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour
)

// OrderHandler обслуживает заказы участников.
type OrderHandler struct {
	service *lifecycle.Service
	idem    domain.IdempotencyRepository
	logger  *log.Entry
}

// NewOrderHandler создаёт обработчик заказов. idem может быть nil —
// тогда HTTP-слой не выполняет replay по Idempotency-Key.
func NewOrderHandler(service *lifecycle.Service, idem domain.IdempotencyRepository, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.New().WithField("component", "api.orders")
	}
	return &OrderHandler{service: service, idem: idem, logger: logger}
}

type createOrderRequest struct {
	EventID    string `json:"event_id"`
	CustomerID string `json:"customer_id"`
	Quantity   int32  `json:"quantity"`
}

type orderResponse struct {
	OrderID        string    `json:"order_id"`
	EventID        string    `json:"event_id"`
	CustomerID     string    `json:"customer_id"`
	Quantity       int32     `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	PricePaidMinor int64     `json:"price_paid_minor"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func toOrderResponse(order domain.OrderEntry) orderResponse {
	return orderResponse{
		OrderID:        order.ID,
		EventID:        order.EventID,
		CustomerID:     order.CustomerID,
		Quantity:       order.Quantity,
		UnitPriceMinor: order.UnitPriceMinor,
		PricePaidMinor: order.PricePaidMinor,
		Currency:       order.Currency,
		Status:         string(order.Status),
		CreatedAt:      order.CreatedAt,
	}
}

// Create размещает заказ. Повтор запроса с тем же Idempotency-Key и тем же
// телом возвращает сохранённый первый ответ; тот же ключ с другим телом —
// конфликт.
func (h *OrderHandler) Create(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, http.StatusBadRequest, "cannot read request body")
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	if key != "" && h.idem != nil {
		requestHash := hashRequestBody(body)
		if _, err := h.idem.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyTTL)); err != nil {
			h.replayOrReject(c, key, err)
			return
		}

		status, payload := h.createOrder(c, req, key)
		h.storeOutcome(key, status, payload)
		return
	}

	h.createOrder(c, req, key)
}

// createOrder выполняет размещение и пишет ответ; возвращает статус и тело
// для сохранения под idempotency-key.
func (h *OrderHandler) createOrder(c *gin.Context, req createOrderRequest, key string) (int, []byte) {
	order, err := h.service.Create(c.Request.Context(), lifecycle.CreateOrderCommand{
		EventID:        req.EventID,
		CustomerID:     req.CustomerID,
		Quantity:       req.Quantity,
		IdempotencyKey: key,
	})
	if err != nil {
		writeDomainError(c, err)
		payload, _ := json.Marshal(errorResponse{Error: err.Error()})
		return c.Writer.Status(), payload
	}

	response := toOrderResponse(order)
	c.JSON(http.StatusCreated, response)
	payload, _ := json.Marshal(response)
	return http.StatusCreated, payload
}

// replayOrReject обрабатывает повтор ключа: replay сохранённого ответа,
// конфликт тела или незавершённую обработку.
func (h *OrderHandler) replayOrReject(c *gin.Context, key string, createErr error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		record, err := h.idem.Get(key)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		if !record.Replayable() {
			writeError(c, http.StatusConflict, "request with this idempotency key is being processed")
			return
		}
		c.Data(record.HTTPStatus, "application/json", record.ResponseBody)
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		writeDomainError(c, createErr)
	default:
		writeDomainError(c, createErr)
	}
}

func (h *OrderHandler) storeOutcome(key string, status int, payload []byte) {
	var err error
	if status >= 200 && status < 300 {
		err = h.idem.MarkDone(key, payload, status)
	} else {
		err = h.idem.MarkFailed(key, payload, status)
	}
	if err != nil {
		h.logger.WithError(err).WithField("key", key).Warn("failed to store idempotency outcome")
	}
}

// Get возвращает заказ.
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

type adjustQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

// AdjustQuantity меняет количество порций placed-заказа.
func (h *OrderHandler) AdjustQuantity(c *gin.Context) {
	var req adjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	order, err := h.service.AdjustQuantity(c.Request.Context(), c.Param("id"), req.Quantity, key)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// Cancel отменяет заказ (void для placed, refund для confirmed).
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "customer cancellation"
	}

	key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	order, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req.Reason, key)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func hashRequestBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
