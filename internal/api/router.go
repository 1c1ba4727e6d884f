package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/cache"
	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/service/callback"
	"github.com/vladislavdragonenkov/mealshare/internal/service/lifecycle"
)

// RouterDeps — зависимости HTTP-слоя. Prices и Idempotency опциональны.
type RouterDeps struct {
	Lifecycle   *lifecycle.Service
	Receiver    *callback.Receiver
	Prices      *cache.PriceCache
	Idempotency domain.IdempotencyRepository
	Logger      *log.Entry
}

// NewRouter собирает gin-маршрутизатор сервиса.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = log.New().WithField("component", "api")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	events := NewEventHandler(deps.Lifecycle, deps.Prices)
	orders := NewOrderHandler(deps.Lifecycle, deps.Idempotency, logger)
	payments := NewPaymentHandler(deps.Receiver)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/events", events.Create)
		v1.GET("/events/:id", events.Get)
		v1.GET("/events/:id/price", events.Price)
		v1.POST("/events/:id/status", events.UpdateStatus)
		v1.PUT("/events/:id/pricing", events.UpdatePricing)
		v1.POST("/events/:id/cancel", events.Cancel)
		v1.POST("/events/:id/cutoff", events.Cutoff)

		v1.POST("/orders", orders.Create)
		v1.GET("/orders/:id", orders.Get)
		v1.PATCH("/orders/:id/quantity", orders.AdjustQuantity)
		v1.POST("/orders/:id/cancel", orders.Cancel)
	}

	router.POST("/webhooks/payments", payments.Webhook)
	router.GET("/payments/return", payments.Return)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("http request")
	}
}
