package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/service/callback"
)

// PaymentHandler принимает внешние платёжные уведомления: server-to-server
// webhook провайдера и GET-фоллбек после redirect клиента. Оба пути строят
// одну и ту же нотификацию и сходятся на одном идемпотентном подтверждении.
type PaymentHandler struct {
	receiver *callback.Receiver
}

// NewPaymentHandler создаёт обработчик платёжных уведомлений.
func NewPaymentHandler(receiver *callback.Receiver) *PaymentHandler {
	return &PaymentHandler{receiver: receiver}
}

type webhookRequest struct {
	ExternalRef string    `json:"external_ref"`
	OrderID     string    `json:"order_id"`
	EventID     string    `json:"event_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	Mode        string    `json:"mode"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Webhook обрабатывает server-to-server уведомление провайдера.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	h.process(c, domain.PaymentNotification{
		ExternalRef: req.ExternalRef,
		OrderID:     req.OrderID,
		EventID:     req.EventID,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Mode:        req.Mode,
		OccurredAt:  req.OccurredAt,
	})
}

// Return обрабатывает фоллбек после redirect клиента: те же данные
// приходят query-параметрами.
func (h *PaymentHandler) Return(c *gin.Context) {
	amountMinor, err := strconv.ParseInt(c.Query("amount_minor"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid amount_minor")
		return
	}

	h.process(c, domain.PaymentNotification{
		ExternalRef: c.Query("external_ref"),
		OrderID:     c.Query("order_id"),
		EventID:     c.Query("event_id"),
		AmountMinor: amountMinor,
		Currency:    c.Query("currency"),
		Mode:        c.Query("mode"),
		OccurredAt:  time.Now().UTC(),
	})
}

func (h *PaymentHandler) process(c *gin.Context, notification domain.PaymentNotification) {
	if err := h.receiver.Process(c.Request.Context(), notification); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
