package domain

import "time"

// PaymentMode — режим платежа во внешнем уведомлении.
const PaymentModeAuthorizedCapture = "authorized_capture"

// PaymentNotification — верифицированное внешнее событие успешной оплаты.
// Приходит двумя независимыми путями (webhook провайдера и redirect-фоллбек
// клиента); оба сходятся на одном идемпотентном confirm.
type PaymentNotification struct {
	// ExternalRef — уникальная ссылка провайдера на платёж; ключ дедупликации.
	ExternalRef string
	OrderID     string
	EventID     string
	AmountMinor int64
	Currency    string
	Mode        string
	OccurredAt  time.Time
}

// PaymentReference — запись леджера обработанных внешних ссылок.
type PaymentReference struct {
	ExternalRef string
	OrderID     string
	AmountMinor int64
	RecordedAt  time.Time
}

// Validate проверяет, что уведомление пригодно для обработки.
func (n *PaymentNotification) Validate() []error {
	var errs []error

	if n.ExternalRef == "" {
		errs = append(errs, ErrPaymentRefMismatch)
	}
	if n.OrderID == "" {
		errs = append(errs, ErrOrderNotFound)
	}
	if n.AmountMinor < 0 {
		errs = append(errs, ErrPriceNegative)
	}

	return errs
}
