package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов и
// локальной разработки. Честно реализует семантику idempotency-key:
// повтор мутирующего вызова с тем же ключом возвращает первый результат
// и не создаёт второго сайд-эффекта.
type MockGateway struct {
	mu sync.Mutex

	AuthorizeErr error
	ModifyErr    error
	CaptureErr   error
	VoidErr      error
	RefundErr    error

	AuthorizeCalls int
	ModifyCalls    int
	CaptureCalls   int
	VoidCalls      int
	RefundCalls    int

	// Авторизации по ID: текущая сумма и валюта.
	auths map[string]*mockAuthorization
	// Результаты мутирующих вызовов по idempotency-key.
	seenKeys map[string]string
}

type mockAuthorization struct {
	AmountMinor int64
	Currency    string
	Captured    bool
	Voided      bool
	Refunded    bool
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		auths:    make(map[string]*mockAuthorization),
		seenKeys: make(map[string]string),
	}
}

// Authorize холдирует сумму; повтор ключа возвращает прежний authorization_id.
func (m *MockGateway) Authorize(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.seenKeys["authorize:"+idempotencyKey]; ok && idempotencyKey != "" {
		return id, nil
	}

	m.AuthorizeCalls++
	if m.AuthorizeErr != nil {
		return "", m.AuthorizeErr
	}

	id := "auth-" + uuid.NewString()
	m.auths[id] = &mockAuthorization{AmountMinor: amountMinor, Currency: currency}
	if idempotencyKey != "" {
		m.seenKeys["authorize:"+idempotencyKey] = id
	}
	return id, nil
}

// Modify меняет сумму авторизации.
func (m *MockGateway) Modify(ctx context.Context, authorizationID string, newAmountMinor int64, idempotencyKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seenKeys["modify:"+idempotencyKey]; ok && idempotencyKey != "" {
		return nil
	}

	m.ModifyCalls++
	if m.ModifyErr != nil {
		return m.ModifyErr
	}

	auth, ok := m.auths[authorizationID]
	if !ok {
		return fmt.Errorf("unknown authorization %s: %w", authorizationID, domain.ErrGatewayDeclined)
	}
	if auth.Captured || auth.Voided {
		return fmt.Errorf("authorization %s is finalized: %w", authorizationID, domain.ErrGatewayDeclined)
	}
	auth.AmountMinor = newAmountMinor
	if idempotencyKey != "" {
		m.seenKeys["modify:"+idempotencyKey] = authorizationID
	}
	return nil
}

// Capture списывает захолдированную сумму. Повторный capture той же
// авторизации возвращает ту же ссылку (идемпотентность на стороне провайдера).
func (m *MockGateway) Capture(ctx context.Context, authorizationID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CaptureCalls++
	if m.CaptureErr != nil {
		return "", m.CaptureErr
	}

	auth, ok := m.auths[authorizationID]
	if !ok {
		return "", fmt.Errorf("unknown authorization %s: %w", authorizationID, domain.ErrGatewayDeclined)
	}
	if auth.Voided {
		return "", fmt.Errorf("authorization %s voided: %w", authorizationID, domain.ErrGatewayDeclined)
	}
	auth.Captured = true
	return "cap-" + authorizationID, nil
}

// Void аннулирует авторизацию до списания.
func (m *MockGateway) Void(ctx context.Context, authorizationID, reason, idempotencyKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seenKeys["void:"+idempotencyKey]; ok && idempotencyKey != "" {
		return nil
	}

	m.VoidCalls++
	if m.VoidErr != nil {
		return m.VoidErr
	}

	auth, ok := m.auths[authorizationID]
	if !ok {
		return fmt.Errorf("unknown authorization %s: %w", authorizationID, domain.ErrGatewayDeclined)
	}
	if auth.Captured {
		return fmt.Errorf("authorization %s already captured: %w", authorizationID, domain.ErrGatewayDeclined)
	}
	auth.Voided = true
	if idempotencyKey != "" {
		m.seenKeys["void:"+idempotencyKey] = authorizationID
	}
	return nil
}

// Refund возвращает списанные средства.
func (m *MockGateway) Refund(ctx context.Context, authorizationID, idempotencyKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ref, ok := m.seenKeys["refund:"+idempotencyKey]; ok && idempotencyKey != "" {
		return ref, nil
	}

	m.RefundCalls++
	if m.RefundErr != nil {
		return "", m.RefundErr
	}

	auth, ok := m.auths[authorizationID]
	if !ok {
		return "", fmt.Errorf("unknown authorization %s: %w", authorizationID, domain.ErrGatewayDeclined)
	}
	if !auth.Captured {
		return "", fmt.Errorf("authorization %s not captured: %w", authorizationID, domain.ErrGatewayDeclined)
	}
	auth.Refunded = true
	ref := "ref-" + authorizationID
	if idempotencyKey != "" {
		m.seenKeys["refund:"+idempotencyKey] = ref
	}
	return ref, nil
}

// AuthorizedAmount возвращает текущую сумму авторизации (для проверок в тестах).
func (m *MockGateway) AuthorizedAmount(authorizationID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	auth, ok := m.auths[authorizationID]
	if !ok {
		return 0, false
	}
	return auth.AmountMinor, true
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
