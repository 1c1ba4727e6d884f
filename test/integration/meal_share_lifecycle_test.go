package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
	"github.com/vladislavdragonenkov/mealshare/internal/service/callback"
	"github.com/vladislavdragonenkov/mealshare/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/mealshare/internal/service/payment"
	"github.com/vladislavdragonenkov/mealshare/internal/storage/memory"
)

// MealShareLifecycleTestSuite прогоняет полный жизненный цикл события
// групповой трапезы: от создания и размещения заказов до дедлайна.
type MealShareLifecycleTestSuite struct {
	suite.Suite
	service  *lifecycle.Service
	receiver *callback.Receiver
	events   domain.EventRepository
	orders   domain.OrderRepository
	gateway  *payment.MockGateway
	now      time.Time
}

func (s *MealShareLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	store := memory.NewStore()
	s.gateway = payment.NewMockGateway()
	s.events = memory.NewEventRepository(store)
	s.orders = memory.NewOrderRepository(store)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.service = lifecycle.NewService(store, s.events, s.orders, s.gateway,
		lifecycle.WithLogger(logger),
		lifecycle.WithClock(func() time.Time { return s.now }),
	)
	s.receiver = callback.NewReceiver(s.service, s.orders, memory.NewPaymentReferenceRepository(),
		callback.WithLogger(logger),
	)
}

func (s *MealShareLifecycleTestSuite) createEvent(maxOrders, minOrders int32, baseMinor, minMinor int64) domain.MealShareEvent {
	event, err := s.service.CreateEvent(context.Background(), lifecycle.CreateEventCommand{
		ChefID:         "chef-1",
		ItemID:         "paella",
		EventAt:        s.now.Add(48 * time.Hour),
		CutoffAt:       s.now.Add(24 * time.Hour),
		MaxOrders:      maxOrders,
		MinOrders:      minOrders,
		BasePriceMinor: baseMinor,
		MinPriceMinor:  minMinor,
		Currency:       "USD",
	})
	require.NoError(s.T(), err)
	return event
}

func (s *MealShareLifecycleTestSuite) placeOrder(eventID, customerID string) domain.OrderEntry {
	order, err := s.service.Create(context.Background(), lifecycle.CreateOrderCommand{
		EventID:    eventID,
		CustomerID: customerID,
		Quantity:   1,
	})
	require.NoError(s.T(), err)
	return order
}

// confirmViaWebhook повторяет полный путь подтверждения: провайдер
// списывает авторизацию, затем уведомление доходит до приёмника.
func (s *MealShareLifecycleTestSuite) confirmViaWebhook(order domain.OrderEntry, externalRef string) error {
	if _, err := s.gateway.Capture(context.Background(), order.AuthorizationID); err != nil {
		return err
	}
	return s.receiver.Process(context.Background(), domain.PaymentNotification{
		ExternalRef: externalRef,
		OrderID:     order.ID,
		EventID:     order.EventID,
		AmountMinor: order.AuthorizedAmountMinor(),
		Currency:    order.Currency,
		Mode:        domain.PaymentModeAuthorizedCapture,
		OccurredAt:  s.now,
	})
}

// requirePriceInvariants проверяет min ≤ current ≤ base и согласованность
// price_paid у всех активных заказов.
func (s *MealShareLifecycleTestSuite) requirePriceInvariants(eventID string) domain.MealShareEvent {
	event, err := s.events.Get(context.Background(), eventID)
	require.NoError(s.T(), err)

	require.GreaterOrEqual(s.T(), event.CurrentMinor, event.MinPriceMinor)
	require.LessOrEqual(s.T(), event.CurrentMinor, event.BasePriceMinor)
	require.LessOrEqual(s.T(), event.OrdersCount, event.MaxOrders)

	return event
}

// Сценарий A и B: скидка растёт с каждым подтверждением и достигает
// минус 4.50 при десяти порциях.
func (s *MealShareLifecycleTestSuite) TestDynamicPricingAccumulatesDiscount() {
	event := s.createEvent(10, 1, 2000, 1000)

	first := s.placeOrder(event.ID, "customer-1")
	require.NoError(s.T(), s.confirmViaWebhook(first, "psp-1"))

	got := s.requirePriceInvariants(event.ID)
	require.Equal(s.T(), int32(1), got.OrdersCount)
	require.Equal(s.T(), int64(2000), got.CurrentMinor, "no discount at a single confirmation")

	second := s.placeOrder(event.ID, "customer-2")
	require.NoError(s.T(), s.confirmViaWebhook(second, "psp-2"))

	got = s.requirePriceInvariants(event.ID)
	require.Equal(s.T(), int32(2), got.OrdersCount)
	require.Equal(s.T(), int64(1950), got.CurrentMinor)

	for _, id := range []string{first.ID, second.ID} {
		order, err := s.orders.Get(context.Background(), id)
		require.NoError(s.T(), err)
		require.Equal(s.T(), int64(1950), order.PricePaidMinor, "propagation must update both orders")
	}

	// Сценарий B: добираем до десяти подтверждённых порций.
	for i := 3; i <= 10; i++ {
		order := s.placeOrder(event.ID, fmt.Sprintf("customer-%d", i))
		require.NoError(s.T(), s.confirmViaWebhook(order, fmt.Sprintf("psp-%d", i)))
	}

	got = s.requirePriceInvariants(event.ID)
	require.Equal(s.T(), int32(10), got.OrdersCount)
	require.Equal(s.T(), int64(1550), got.CurrentMinor)

	// Сценарий C: отмена подтверждённого заказа поднимает цену обратно.
	cancelled, err := s.service.Cancel(context.Background(), first.ID, "changed plans", "cancel-1")
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusRefunded, cancelled.Status)

	got = s.requirePriceInvariants(event.ID)
	require.Equal(s.T(), int32(9), got.OrdersCount)
	require.Equal(s.T(), int64(1600), got.CurrentMinor)

	stored, err := s.orders.Get(context.Background(), first.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusRefunded, stored.Status)

	active, err := s.orders.Get(context.Background(), second.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1600), active.PricePaidMinor, "remaining actives must see the raised price")
}

// Сценарий D: второй активный заказ той же пары (customer, event)
// отклоняется без обращения к платёжному шлюзу.
func (s *MealShareLifecycleTestSuite) TestDuplicateActiveOrderRejected() {
	event := s.createEvent(10, 1, 2000, 1000)
	s.placeOrder(event.ID, "customer-1")

	authorizeCalls := s.gateway.AuthorizeCalls

	_, err := s.service.Create(context.Background(), lifecycle.CreateOrderCommand{
		EventID:    event.ID,
		CustomerID: "customer-1",
		Quantity:   2,
	})
	require.ErrorIs(s.T(), err, domain.ErrDuplicateActiveOrder)
	require.Equal(s.T(), authorizeCalls, s.gateway.AuthorizeCalls, "no second authorization attempted")
}

// Сценарий E: изменение количества после дедлайна отклоняется, заказ
// и авторизация не меняются.
func (s *MealShareLifecycleTestSuite) TestAdjustAfterCutoffRejected() {
	event := s.createEvent(10, 1, 2000, 1000)
	order := s.placeOrder(event.ID, "customer-1")

	s.now = s.now.Add(25 * time.Hour)
	modifyCalls := s.gateway.ModifyCalls

	_, err := s.service.AdjustQuantity(context.Background(), order.ID, 3, "adjust-1")
	require.ErrorIs(s.T(), err, domain.ErrCutoffPassed)
	require.Equal(s.T(), modifyCalls, s.gateway.ModifyCalls)

	unchanged, err := s.orders.Get(context.Background(), order.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int32(1), unchanged.Quantity)
}

// Идемпотентный confirm: повторная доставка того же уведомления (webhook
// и redirect-фоллбек) даёт один переход и один инкремент счётчика.
func (s *MealShareLifecycleTestSuite) TestWebhookAndRedirectConverge() {
	event := s.createEvent(10, 1, 2000, 1000)
	order := s.placeOrder(event.ID, "customer-1")

	require.NoError(s.T(), s.confirmViaWebhook(order, "psp-1"))
	require.NoError(s.T(), s.confirmViaWebhook(order, "psp-1"), "redirect fallback must be a no-op")

	got := s.requirePriceInvariants(event.ID)
	require.Equal(s.T(), int32(1), got.OrdersCount, "double delivery must not re-increment")

	confirmed, err := s.orders.Get(context.Background(), order.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusConfirmed, confirmed.Status)
}

// Дедлайн с набранным минимумом: размещённые заказы списываются, событие
// закрывается; дедлайн без минимума аннулирует авторизации.
func (s *MealShareLifecycleTestSuite) TestCutoffDecision() {
	viable := s.createEvent(10, 1, 2000, 1000)
	viableOrder := s.placeOrder(viable.ID, "customer-1")

	starved := s.createEvent(10, 5, 2000, 1000)
	starvedOrder := s.placeOrder(starved.ID, "customer-2")

	s.now = s.now.Add(25 * time.Hour)

	require.NoError(s.T(), s.service.OnCutoffReached(context.Background(), viable.ID))
	require.NoError(s.T(), s.service.OnCutoffReached(context.Background(), starved.ID))

	captured, err := s.orders.Get(context.Background(), viableOrder.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusConfirmed, captured.Status)

	voided, err := s.orders.Get(context.Background(), starvedOrder.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusCancelled, voided.Status)

	for _, id := range []string{viable.ID, starved.ID} {
		event, err := s.events.Get(context.Background(), id)
		require.NoError(s.T(), err)
		require.Equal(s.T(), domain.EventStatusClosed, event.Status)
	}
}

// Отмена события каскадно снимает авторизации и возвращает списания.
func (s *MealShareLifecycleTestSuite) TestEventCancellationCascades() {
	event := s.createEvent(10, 1, 2000, 1000)
	placed := s.placeOrder(event.ID, "customer-1")
	confirmed := s.placeOrder(event.ID, "customer-2")
	require.NoError(s.T(), s.confirmViaWebhook(confirmed, "psp-1"))

	require.NoError(s.T(), s.service.CancelEvent(context.Background(), event.ID, "chef unavailable", "cancel-evt-1"))

	got, err := s.events.Get(context.Background(), event.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.EventStatusCancelled, got.Status)

	voided, err := s.orders.Get(context.Background(), placed.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusCancelled, voided.Status)

	refunded, err := s.orders.Get(context.Background(), confirmed.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusRefunded, refunded.Status)
}

func TestMealShareLifecycleSuite(t *testing.T) {
	suite.Run(t, new(MealShareLifecycleTestSuite))
}
