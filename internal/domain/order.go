package domain

import "time"

// OrderStatus описывает жизненный цикл заказа на meal-share событие.
type OrderStatus string

const (
	// OrderStatusPlaced — заказ создан, оплата авторизована, но ещё не списана.
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusConfirmed — оплата списана, заказ учтён в счётчике события.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusCancelled — заказ отменён до списания, авторизация аннулирована.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded — заказ отменён после списания, средства возвращены.
	OrderStatusRefunded OrderStatus = "refunded"
	// OrderStatusCaptureFailed — списание в дедлайн не удалось; терминальный статус.
	OrderStatusCaptureFailed OrderStatus = "capture_failed"
	// OrderStatusCompleted — событие завершилось, заказ исполнен.
	OrderStatusCompleted OrderStatus = "completed"
)

// Active сообщает, учитывается ли заказ в вместимости и распространении цены.
func (s OrderStatus) Active() bool {
	return s == OrderStatusPlaced || s == OrderStatusConfirmed
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRefunded, OrderStatusCaptureFailed, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// OrderEntry — заказ клиента на meal-share событие.
//
// UnitPriceMinor фиксирует цену на момент авторизации; авторизованная сумма
// равна UnitPriceMinor*Quantity и не меняется при падении цены.
// PricePaidMinor отражает текущую цену события (CurrentMinor*Quantity)
// и перезаписывается при каждом пересчёте.
type OrderEntry struct {
	ID         string
	EventID    string
	CustomerID string

	Quantity       int32
	UnitPriceMinor int64
	PricePaidMinor int64
	Currency       string

	AuthorizationID string
	CaptureRef      string
	RefundID        string
	// PriceAdjustmentProcessed сбрасывается при изменении PricePaidMinor;
	// расчёт компенсации разницы выполняет внешний процесс.
	PriceAdjustmentProcessed bool

	Status       OrderStatus
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate проверяет корректность ключевых полей заказа.
func (o *OrderEntry) Validate() []error {
	var errs []error

	if o.EventID == "" {
		errs = append(errs, ErrEventIDRequired)
	}
	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Quantity < 1 {
		errs = append(errs, ErrQuantityInvalid)
	}
	if o.UnitPriceMinor < 0 || o.PricePaidMinor < 0 {
		errs = append(errs, ErrPriceNegative)
	}

	return errs
}

// AuthorizedAmountMinor возвращает сумму, захолдированную у платёжного провайдера.
func (o *OrderEntry) AuthorizedAmountMinor() int64 {
	return o.UnitPriceMinor * int64(o.Quantity)
}
