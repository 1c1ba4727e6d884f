package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultCleanupBatchSize = 500

	// Леджер внешних платёжных ссылок храним дольше idempotency-ключей:
	// провайдеры повторяют webhook сутками.
	defaultReferenceRetention = 30 * 24 * time.Hour
)

var (
	ledgerCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealshare_ledger_cleanup_runs_total",
		Help: "Total number of ledger cleanup runs grouped by result.",
	}, []string{"result"})
	ledgerCleanupDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealshare_ledger_cleanup_deleted_total",
		Help: "Total number of deleted expired ledger records grouped by source.",
	}, []string{"source"})
	ledgerCleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mealshare_ledger_cleanup_last_deleted",
		Help: "Number of deleted records during the last cleanup run.",
	})
)

// CleanupOptions задаёт параметры воркера очистки леджеров.
type CleanupOptions struct {
	Logger             *log.Entry
	Interval           time.Duration
	BatchSize          int
	ReferenceRetention time.Duration
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между cleanup-циклами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер batch для одного удаления.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// WithReferenceRetention задаёт срок хранения внешних платёжных ссылок.
func WithReferenceRetention(retention time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.ReferenceRetention = retention
	}
}

// CleanupWorker периодически удаляет просроченные idempotency-записи и
// устаревшие внешние платёжные ссылки. Любой из репозиториев может быть
// nil — тогда соответствующий леджер не обслуживается.
type CleanupWorker struct {
	keys      domain.IdempotencyRepository
	refs      domain.PaymentReferenceRepository
	logger    *log.Entry
	interval  time.Duration
	batchSize int
	retention time.Duration
}

// NewCleanupWorker создаёт воркер очистки леджеров.
func NewCleanupWorker(keys domain.IdempotencyRepository, refs domain.PaymentReferenceRepository, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:           defaultCleanupInterval,
		BatchSize:          defaultCleanupBatchSize,
		ReferenceRetention: defaultReferenceRetention,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "ledger-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}
	if opts.ReferenceRetention <= 0 {
		opts.ReferenceRetention = defaultReferenceRetention
	}

	return &CleanupWorker{
		keys:      keys,
		refs:      refs,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		retention: opts.ReferenceRetention,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.keys == nil && w.refs == nil {
		w.logger.Warn("ledger cleanup worker is disabled: no repositories configured")
		return
	}

	w.cleanup(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx, time.Now().UTC())
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, now time.Time) {
	deleted, err := w.DeleteExpired(ctx, now)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		ledgerCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("ledger cleanup run failed")
		return
	}

	ledgerCleanupRunsTotal.WithLabelValues("ok").Inc()
	ledgerCleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("ledger cleanup completed")
	}
}

// DeleteExpired удаляет просроченные записи обоих леджеров порциями batchSize.
// Idempotency-ключи сравниваются по ttl с now, платёжные ссылки — по сроку
// хранения от момента записи.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	total := 0
	if w.keys != nil {
		deleted, err := w.drain(ctx, "idempotency_keys", func() (int, error) {
			return w.keys.DeleteExpired(now, w.batchSize)
		})
		total += deleted
		if err != nil {
			return total, err
		}
	}
	if w.refs != nil {
		before := now.Add(-w.retention)
		deleted, err := w.drain(ctx, "payment_references", func() (int, error) {
			return w.refs.DeleteExpired(before, w.batchSize)
		})
		total += deleted
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (w *CleanupWorker) drain(ctx context.Context, source string, deleteBatch func() (int, error)) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := deleteBatch()
		if err != nil {
			return total, err
		}

		total += deleted
		if deleted > 0 {
			ledgerCleanupDeletedTotal.WithLabelValues(source).Add(float64(deleted))
		}

		if deleted < w.batchSize {
			return total, nil
		}
	}
}
