package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора шефа.
	ErrChefRequired = errors.New("chef_id is required")
	// Ошибка отсутствующего идентификатора блюда.
	ErrItemRequired = errors.New("item_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствующих полей расписания события.
	ErrScheduleRequired = errors.New("event_at and cutoff_at are required")
	// Ошибка, если дедлайн заказов не раньше времени события.
	ErrCutoffAfterEvent = errors.New("cutoff_at must be strictly before event_at")
	// Ошибка некорректной вместимости события (< 1).
	ErrMaxOrdersInvalid = errors.New("max_orders must be at least 1")
	// Ошибка некорректного порога жизнеспособности (< 1).
	ErrMinOrdersInvalid = errors.New("min_orders must be at least 1")
	// Ошибка отрицательной цены.
	ErrPriceNegative = errors.New("price must be non-negative")
	// Ошибка, если минимальная цена выше базовой.
	ErrMinAboveBase = errors.New("min_price must not exceed base_price")
	// Ошибка выхода текущей цены за пределы [min_price, base_price].
	ErrCurrentPriceOutOfRange = errors.New("current_price out of [min_price, base_price]")
	// Ошибка выхода счётчика заказов за пределы [0, max_orders].
	ErrOrdersCountOutOfRange = errors.New("orders_count out of [0, max_orders]")
	// Ошибка отсутствующего идентификатора события в заказе.
	ErrEventIDRequired = errors.New("event_id is required")
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка некорректного количества порций (< 1).
	ErrQuantityInvalid = errors.New("quantity must be at least 1")

	// ErrEventNotFound возвращается, если событие не найдено в репозитории.
	ErrEventNotFound = errors.New("meal share event not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrEventClosed — событие не принимает заказы (статус или дедлайн).
	ErrEventClosed = errors.New("event is not accepting orders")
	// ErrCapacityExceeded — заказ превысил бы max_orders.
	ErrCapacityExceeded = errors.New("order would exceed event capacity")
	// ErrDuplicateActiveOrder — у клиента уже есть активный заказ на это событие.
	ErrDuplicateActiveOrder = errors.New("active order already exists for customer and event")
	// ErrInvalidOrderState — операция недопустима для текущего статуса заказа.
	ErrInvalidOrderState = errors.New("operation not valid for current order status")
	// ErrInvalidEventState — операция недопустима для текущего статуса события.
	ErrInvalidEventState = errors.New("operation not valid for current event status")
	// ErrCutoffPassed — изменение количества после дедлайна.
	ErrCutoffPassed = errors.New("order cutoff time has passed")
	// ErrPricingLocked — попытка изменить base/min цену при подтверждённых заказах.
	ErrPricingLocked = errors.New("pricing fields are immutable once orders are confirmed")
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrVersionConflict = errors.New("version conflict")

	// ErrGatewayDeclined — платёжный провайдер отклонил операцию (бизнес-ошибка).
	ErrGatewayDeclined = errors.New("payment gateway declined")
	// ErrGatewayUnavailable — временная ошибка провайдера, операцию можно повторить.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentRefMismatch — внешнее платёжное событие не сошлось с условиями заказа.
	ErrPaymentRefMismatch = errors.New("external payment event does not match order terms")
	// ErrPaymentRefExists — внешняя платёжная ссылка уже обработана.
	ErrPaymentRefExists = errors.New("external payment reference already recorded")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — ключ не найден.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyHashMismatch — повтор с тем же ключом, но другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
)

// IsValidation сообщает, относится ли ошибка к валидации входных данных.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrQuantityInvalid),
		errors.Is(err, ErrChefRequired),
		errors.Is(err, ErrItemRequired),
		errors.Is(err, ErrCustomerRequired),
		errors.Is(err, ErrEventIDRequired),
		errors.Is(err, ErrCurrencyRequired),
		errors.Is(err, ErrScheduleRequired),
		errors.Is(err, ErrCutoffAfterEvent),
		errors.Is(err, ErrMaxOrdersInvalid),
		errors.Is(err, ErrMinOrdersInvalid),
		errors.Is(err, ErrPriceNegative),
		errors.Is(err, ErrMinAboveBase):
		return true
	}
	return false
}

// IsConflict проверяет, является ли ошибка конфликтом (дубликат/версия).
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateActiveOrder) || errors.Is(err, ErrVersionConflict)
}

// IsGateway проверяет, пришла ли ошибка от платёжного провайдера.
func IsGateway(err error) bool {
	return errors.Is(err, ErrGatewayDeclined) || errors.Is(err, ErrGatewayUnavailable)
}
