package domain

import (
	"context"
	"time"
)

// PaymentGateway описывает контракт платёжного провайдера с manual capture.
// Все мутирующие вызовы принимают idempotency-key: повтор после таймаута
// не должен приводить к двойной авторизации, двойному void или refund.
type PaymentGateway interface {
	// Authorize холдирует сумму и возвращает идентификатор авторизации.
	Authorize(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (string, error)
	// Modify меняет сумму существующей авторизации.
	Modify(ctx context.Context, authorizationID string, newAmountMinor int64, idempotencyKey string) error
	// Capture списывает захолдированную сумму.
	Capture(ctx context.Context, authorizationID string) (string, error)
	// Void аннулирует авторизацию до списания.
	Void(ctx context.Context, authorizationID, reason, idempotencyKey string) error
	// Refund возвращает списанные средства.
	Refund(ctx context.Context, authorizationID, idempotencyKey string) (string, error)
}

// EventPublisher публикует события жизненного цикла наружу; должен быть
// безопасен для вызова из нескольких горутин.
type EventPublisher interface {
	Publish(topic, key string, event interface{}) error
}

// PaymentReferenceRepository — леджер обработанных внешних платёжных ссылок.
// Вторая линия идемпотентности: защищает от повторной доставки уведомления,
// в отличие от idempotency-key, защищающего сами вызовы провайдера.
type PaymentReferenceRepository interface {
	// Record сохраняет ссылку; возвращает ErrPaymentRefExists при дубликате.
	Record(ref PaymentReference) error
	// Exists проверяет, обрабатывалась ли внешняя ссылка.
	Exists(externalRef string) (bool, error)
	// DeleteExpired удаляет записи старше before, не более limit за вызов.
	DeleteExpired(before time.Time, limit int) (int, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
