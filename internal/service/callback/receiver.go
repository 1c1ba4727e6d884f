package callback

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/metrics"
)

// Confirmer — часть жизненного цикла, нужная приёмнику: идемпотентное
// подтверждение заказа.
type Confirmer interface {
	Confirm(ctx context.Context, orderID, externalRef string) error
}

// Receiver обрабатывает внешние уведомления об успешной оплате. Уведомления
// приходят двумя независимыми путями (webhook провайдера и redirect-фоллбек
// клиента) и сходятся здесь на одном подтверждении: леджер обработанных
// внешних ссылок отсекает повторы, сверка условий — подмену параметров.
type Receiver struct {
	confirmer Confirmer
	orders    domain.OrderRepository
	refs      domain.PaymentReferenceRepository
	logger    *log.Entry
	metrics   *metrics.LifecycleMetrics
	now       func() time.Time
}

// Option настраивает Receiver.
type Option func(*Receiver)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(r *Receiver) {
		r.logger = logger
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.LifecycleMetrics) Option {
	return func(r *Receiver) {
		r.metrics = m
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(r *Receiver) {
		r.now = now
	}
}

// NewReceiver создаёт приёмник платёжных уведомлений.
func NewReceiver(confirmer Confirmer, orders domain.OrderRepository, refs domain.PaymentReferenceRepository, options ...Option) *Receiver {
	r := &Receiver{
		confirmer: confirmer,
		orders:    orders,
		refs:      refs,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(r)
	}
	if r.logger == nil {
		r.logger = log.New().WithField("component", "payment_callback")
	}
	return r
}

// Process обрабатывает одно уведомление. Порядок строгий: валидация,
// дедупликация по внешней ссылке, сверка условий платежа с заказом,
// подтверждение, запись в леджер. Леджер пополняется только после
// успешного подтверждения: упавший confirm остаётся повторяемым.
func (r *Receiver) Process(ctx context.Context, notification domain.PaymentNotification) error {
	if errs := notification.Validate(); len(errs) > 0 {
		r.recordRejected()
		return errors.Join(errs...)
	}

	seen, err := r.refs.Exists(notification.ExternalRef)
	if err != nil {
		return err
	}
	if seen {
		r.recordDuplicate()
		r.logger.WithField("external_ref", notification.ExternalRef).
			Debug("duplicate payment notification ignored")
		return nil
	}

	order, err := r.orders.Get(ctx, notification.OrderID)
	if err != nil {
		r.recordRejected()
		return err
	}
	if err := r.verifyTerms(notification, order); err != nil {
		r.recordRejected()
		r.logger.WithError(err).WithFields(log.Fields{
			"external_ref": notification.ExternalRef,
			"order_id":     order.ID,
		}).Warn("payment notification rejected")
		return err
	}

	if err := r.confirmer.Confirm(ctx, order.ID, notification.ExternalRef); err != nil {
		return err
	}

	ref := domain.PaymentReference{
		ExternalRef: notification.ExternalRef,
		OrderID:     order.ID,
		AmountMinor: notification.AmountMinor,
		RecordedAt:  r.now(),
	}
	if err := r.refs.Record(ref); err != nil {
		if errors.Is(err, domain.ErrPaymentRefExists) {
			// Гонка с параллельной доставкой: подтверждение уже применено.
			r.recordDuplicate()
			return nil
		}
		return err
	}

	r.logger.WithFields(log.Fields{
		"external_ref": notification.ExternalRef,
		"order_id":     order.ID,
	}).Info("payment notification processed")

	return nil
}

// verifyTerms сверяет условия платежа с заказом: событие, валюту, режим
// и сумму авторизации.
func (r *Receiver) verifyTerms(n domain.PaymentNotification, order domain.OrderEntry) error {
	if n.EventID != "" && n.EventID != order.EventID {
		return domain.ErrPaymentRefMismatch
	}
	if n.Currency != "" && n.Currency != order.Currency {
		return domain.ErrPaymentRefMismatch
	}
	if n.Mode != "" && n.Mode != domain.PaymentModeAuthorizedCapture {
		return domain.ErrPaymentRefMismatch
	}
	if n.AmountMinor != order.AuthorizedAmountMinor() {
		return domain.ErrPaymentRefMismatch
	}
	return nil
}

func (r *Receiver) recordDuplicate() {
	if r.metrics != nil {
		r.metrics.RecordCallbackDuplicate()
	}
}

func (r *Receiver) recordRejected() {
	if r.metrics != nil {
		r.metrics.RecordCallbackRejected()
	}
}
