package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/mealshare/internal/metrics"
)

// PriceInvalidator сбрасывает закэшированную цену события после пересчёта.
type PriceInvalidator interface {
	Invalidate(ctx context.Context, eventID string)
}

// Service оркестрирует жизненный цикл meal-share заказов: create / confirm /
// adjust / cancel и решение capture-or-void в дедлайн. Все мутации счётчика
// и цены события выполняются внутри одной per-event блокировки хранилища.
type Service struct {
	store   domain.TxStore
	events  domain.EventRepository
	orders  domain.OrderRepository
	gateway domain.PaymentGateway

	publisher   domain.EventPublisher // опционально: Kafka может быть не настроена
	invalidator PriceInvalidator      // опционально: кэш цены
	logger      *log.Entry
	metrics     *metrics.LifecycleMetrics
	now         func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPublisher задаёт издателя событий жизненного цикла.
func WithPublisher(publisher domain.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithMetrics задаёт набор prometheus-метрик.
func WithMetrics(m *metrics.LifecycleMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPriceInvalidator задаёт инвалидатор кэша цены.
func WithPriceInvalidator(inv PriceInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создаёт рабочий экземпляр сервиса.
func NewService(
	store domain.TxStore,
	events domain.EventRepository,
	orders domain.OrderRepository,
	gateway domain.PaymentGateway,
	options ...Option,
) *Service {
	s := &Service{
		store:   store,
		events:  events,
		orders:  orders,
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.New().WithField("component", "lifecycle")
	}
	return s
}

// CreateOrderCommand — параметры создания заказа.
type CreateOrderCommand struct {
	EventID        string
	CustomerID     string
	Quantity       int32
	IdempotencyKey string
}

// Create размещает заказ: под блокировкой события проверяет статус/дедлайн,
// вместимость и уникальность активного заказа, авторизует оплату по текущей
// цене и сохраняет заказ в статусе placed.
//
// Счётчик события и current_price здесь НЕ меняются: скидка за этот заказ
// применяется только после его подтверждения (capture), не при размещении.
func (s *Service) Create(ctx context.Context, cmd CreateOrderCommand) (domain.OrderEntry, error) {
	if cmd.Quantity < 1 {
		return domain.OrderEntry{}, domain.ErrQuantityInvalid
	}
	if cmd.CustomerID == "" {
		return domain.OrderEntry{}, domain.ErrCustomerRequired
	}

	key := cmd.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	var created domain.OrderEntry
	err := s.store.WithEventLock(ctx, cmd.EventID, func(tx domain.EventTx) error {
		event := tx.Event()
		now := s.now()

		if !event.AcceptingOrders(now) {
			return domain.ErrEventClosed
		}
		// Вместимость считается по активным заказам: размещённый заказ
		// удерживает место до решения в дедлайн, хотя счётчик цены он
		// ещё не увеличивает.
		held, err := activeQuantity(tx)
		if err != nil {
			return err
		}
		if held+cmd.Quantity > event.MaxOrders {
			return domain.ErrCapacityExceeded
		}
		// Проверка дубликата входит в ту же транзакцию, что и проверки выше:
		// повтор с другим idempotency-key тоже получает конфликт, а вторая
		// авторизация не выполняется.
		if _, exists, err := tx.ActiveOrderByCustomer(cmd.CustomerID); err != nil {
			return err
		} else if exists {
			return domain.ErrDuplicateActiveOrder
		}

		amount := event.CurrentMinor * int64(cmd.Quantity)
		authID, err := s.authorize(ctx, amount, event.Currency, key)
		if err != nil {
			return err
		}

		created = domain.OrderEntry{
			ID:              uuid.NewString(),
			EventID:         event.ID,
			CustomerID:      cmd.CustomerID,
			Quantity:        cmd.Quantity,
			UnitPriceMinor:  event.CurrentMinor,
			PricePaidMinor:  amount,
			Currency:        event.Currency,
			AuthorizationID: authID,
			Status:          domain.OrderStatusPlaced,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.CreateOrder(created)
	})
	if err != nil {
		return domain.OrderEntry{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderPlaced()
	}
	s.publishOrderEvent(kafka.EventTypeOrderPlaced, created, map[string]interface{}{
		"quantity":         created.Quantity,
		"unit_price_minor": created.UnitPriceMinor,
	})

	s.logger.WithFields(log.Fields{
		"order_id": created.ID,
		"event_id": created.EventID,
		"quantity": created.Quantity,
	}).Info("order placed")

	return created, nil
}

// Confirm переводит заказ в confirmed после успешного capture. Безопасен
// к повторному вызову: для уже подтверждённого заказа — no-op без второго
// инкремента счётчика. Инкремент, пересчёт цены и её раскатка на активные
// заказы происходят в одной транзакции: либо всё, либо ничего.
func (s *Service) Confirm(ctx context.Context, orderID, externalRef string) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}

	var (
		applied bool
		event   domain.MealShareEvent
	)
	err = s.store.WithEventLock(ctx, order.EventID, func(tx domain.EventTx) error {
		ord, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}

		switch ord.Status {
		case domain.OrderStatusConfirmed, domain.OrderStatusCompleted, domain.OrderStatusRefunded:
			// Повторная доставка подтверждения: состояние уже применено.
			return nil
		case domain.OrderStatusPlaced:
		default:
			return domain.ErrInvalidOrderState
		}

		// Capture идемпотентен на стороне шлюза: если провайдер уже списал
		// средства (webhook), повтор вернёт ту же ссылку и синхронизирует
		// состояние авторизации для последующего refund.
		if _, err := s.capture(ctx, ord.AuthorizationID); err != nil {
			return err
		}

		now := s.now()
		ord.Status = domain.OrderStatusConfirmed
		ord.CaptureRef = externalRef
		ord.UpdatedAt = now
		if err := tx.SaveOrder(ord); err != nil {
			return err
		}

		ev := tx.Event()
		ev.OrdersCount += ord.Quantity
		if err := s.propagatePrice(tx, &ev, now); err != nil {
			return err
		}

		applied = true
		event = ev
		order = ord
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		s.logger.WithField("order_id", orderID).Debug("confirm skipped, order already processed")
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordOrderConfirmed()
	}
	s.publishOrderEvent(kafka.EventTypeOrderConfirmed, order, map[string]interface{}{
		"capture_ref": externalRef,
	})
	s.publishPriceUpdate(event)
	s.invalidatePrice(ctx, event.ID)

	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"event_id":     event.ID,
		"orders_count": event.OrdersCount,
		"price_minor":  event.CurrentMinor,
	}).Info("order confirmed")

	return nil
}

// AdjustQuantity меняет количество порций заказа до подтверждения.
// Затрагивает только собственную авторизацию заказа: счётчик события
// и цены соседних заказов намеренно не пересчитываются.
func (s *Service) AdjustQuantity(ctx context.Context, orderID string, newQuantity int32, idempotencyKey string) (domain.OrderEntry, error) {
	if newQuantity < 1 {
		return domain.OrderEntry{}, domain.ErrQuantityInvalid
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.OrderEntry{}, err
	}

	key := idempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	var updated domain.OrderEntry
	err = s.store.WithEventLock(ctx, order.EventID, func(tx domain.EventTx) error {
		ord, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}
		if ord.Status != domain.OrderStatusPlaced {
			return domain.ErrInvalidOrderState
		}

		event := tx.Event()
		now := s.now()
		if !now.Before(event.CutoffAt) {
			return domain.ErrCutoffPassed
		}

		if ord.Quantity == newQuantity {
			updated = ord
			return nil
		}

		if newQuantity > ord.Quantity {
			held, err := activeQuantity(tx)
			if err != nil {
				return err
			}
			if held-ord.Quantity+newQuantity > event.MaxOrders {
				return domain.ErrCapacityExceeded
			}
		}

		newTotal := ord.UnitPriceMinor * int64(newQuantity)
		if err := s.modify(ctx, ord.AuthorizationID, newTotal, key); err != nil {
			return err
		}

		ord.Quantity = newQuantity
		ord.PricePaidMinor = event.CurrentMinor * int64(newQuantity)
		ord.PriceAdjustmentProcessed = false
		ord.UpdatedAt = now
		if err := tx.SaveOrder(ord); err != nil {
			return err
		}
		updated = ord
		return nil
	})
	if err != nil {
		return domain.OrderEntry{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderAdjusted()
	}
	s.publishOrderEvent(kafka.EventTypeOrderAdjusted, updated, map[string]interface{}{
		"quantity": updated.Quantity,
	})

	return updated, nil
}

// activeQuantity возвращает суммарное количество порций в заказах
// placed/confirmed события.
func activeQuantity(tx domain.EventTx) (int32, error) {
	active, err := tx.ListActiveOrders()
	if err != nil {
		return 0, err
	}
	var total int32
	for _, ord := range active {
		total += ord.Quantity
	}
	return total, nil
}

// propagatePrice пересчитывает current_price из счётчика события и
// перезаписывает price_paid у всех активных заказов. Вызывается только
// под блокировкой события; сохраняет и само событие.
func (s *Service) propagatePrice(tx domain.EventTx, event *domain.MealShareEvent, now time.Time) error {
	start := time.Now()

	event.CurrentMinor = domain.RecomputePrice(event.BasePriceMinor, event.MinPriceMinor, event.OrdersCount)
	event.UpdatedAt = now
	if err := tx.SaveEvent(*event); err != nil {
		return err
	}

	active, err := tx.ListActiveOrders()
	if err != nil {
		return err
	}
	for _, ord := range active {
		paid := event.CurrentMinor * int64(ord.Quantity)
		if ord.PricePaidMinor == paid {
			continue
		}
		ord.PricePaidMinor = paid
		ord.PriceAdjustmentProcessed = false
		ord.UpdatedAt = now
		if err := tx.SaveOrder(ord); err != nil {
			return err
		}
	}

	if s.metrics != nil {
		s.metrics.RecordRecompute(time.Since(start))
	}
	return nil
}

func (s *Service) invalidatePrice(ctx context.Context, eventID string) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.Invalidate(ctx, eventID)
}
