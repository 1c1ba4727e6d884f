package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics содержит метрики движка заказов и ценообразования.
type LifecycleMetrics struct {
	// Счётчики переходов заказов.
	ordersPlaced        prometheus.Counter
	ordersConfirmed     prometheus.Counter
	ordersAdjusted      prometheus.Counter
	ordersCancelled     prometheus.Counter
	ordersRefunded      prometheus.Counter
	ordersCaptureFailed prometheus.Counter

	// Пересчёт ценообразования.
	priceRecomputes   prometheus.Counter
	recomputeDuration prometheus.Histogram

	// Вызовы платёжного провайдера по операциям.
	gatewayCallDuration *prometheus.HistogramVec
	gatewayErrors       *prometheus.CounterVec

	// Конвергенция платёжных уведомлений.
	callbackDuplicates prometheus.Counter
	callbackRejected   prometheus.Counter

	// События в дедлайн.
	cutoffRuns *prometheus.CounterVec
}

// NewLifecycleMetrics создаёт набор метрик в default registerer.
func NewLifecycleMetrics() *LifecycleMetrics {
	return newLifecycleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newLifecycleMetricsWithRegisterer(registerer prometheus.Registerer) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LifecycleMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_orders_placed_total",
			Help: "Total number of orders placed (payment authorized)",
		}),
		ordersConfirmed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_orders_confirmed_total",
			Help: "Total number of orders confirmed (payment captured)",
		}),
		ordersAdjusted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_orders_adjusted_total",
			Help: "Total number of quantity adjustments",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_orders_cancelled_total",
			Help: "Total number of orders cancelled before capture",
		}),
		ordersRefunded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_orders_refunded_total",
			Help: "Total number of orders refunded after capture",
		}),
		ordersCaptureFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_orders_capture_failed_total",
			Help: "Total number of orders whose capture was declined at cutoff",
		}),
		priceRecomputes: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_price_recomputes_total",
			Help: "Total number of dynamic price recomputations",
		}),
		recomputeDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "mealshare_price_recompute_duration_seconds",
			Help:    "Duration of price recompute and propagation under the event lock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		gatewayCallDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "mealshare_gateway_call_duration_seconds",
			Help:    "Duration of payment gateway calls by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		gatewayErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "mealshare_gateway_errors_total",
			Help: "Total number of failed payment gateway calls by operation",
		}, []string{"operation"}),
		callbackDuplicates: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_callback_duplicates_total",
			Help: "Total number of duplicate payment notifications deduplicated",
		}),
		callbackRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "mealshare_callback_rejected_total",
			Help: "Total number of payment notifications rejected by verification",
		}),
		cutoffRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "mealshare_cutoff_runs_total",
			Help: "Total number of cutoff decisions grouped by outcome",
		}, []string{"outcome"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced увеличивает счётчик размещённых заказов.
func (m *LifecycleMetrics) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
}

// RecordOrderConfirmed увеличивает счётчик подтверждённых заказов.
func (m *LifecycleMetrics) RecordOrderConfirmed() {
	m.ordersConfirmed.Inc()
}

// RecordOrderAdjusted увеличивает счётчик изменений количества.
func (m *LifecycleMetrics) RecordOrderAdjusted() {
	m.ordersAdjusted.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *LifecycleMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordOrderRefunded увеличивает счётчик возвращённых заказов.
func (m *LifecycleMetrics) RecordOrderRefunded() {
	m.ordersRefunded.Inc()
}

// RecordCaptureFailed увеличивает счётчик неудачных списаний в дедлайн.
func (m *LifecycleMetrics) RecordCaptureFailed() {
	m.ordersCaptureFailed.Inc()
}

// RecordRecompute записывает пересчёт цены и его длительность.
func (m *LifecycleMetrics) RecordRecompute(duration time.Duration) {
	m.priceRecomputes.Inc()
	m.recomputeDuration.Observe(duration.Seconds())
}

// RecordGatewayCall записывает длительность вызова провайдера.
func (m *LifecycleMetrics) RecordGatewayCall(operation string, duration time.Duration, err error) {
	m.gatewayCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.gatewayErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCallbackDuplicate увеличивает счётчик дедуплицированных уведомлений.
func (m *LifecycleMetrics) RecordCallbackDuplicate() {
	m.callbackDuplicates.Inc()
}

// RecordCallbackRejected увеличивает счётчик отклонённых уведомлений.
func (m *LifecycleMetrics) RecordCallbackRejected() {
	m.callbackRejected.Inc()
}

// RecordCutoffRun записывает исход обработки дедлайна: captured | voided | skipped.
func (m *LifecycleMetrics) RecordCutoffRun(outcome string) {
	m.cutoffRuns.WithLabelValues(outcome).Inc()
}
