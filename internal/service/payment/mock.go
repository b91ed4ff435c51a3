package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// MockGateway — конфигурируемая заглушка платёжного провайдера.
// По умолчанию отвечает успешно и возвращает пустые детали.
type MockGateway struct {
	mu sync.Mutex

	Info domain.TransactionInfo
	Err  error

	calls []domain.PaymentTransaction
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// FetchTransactionInfo возвращает настроенный ответ и запоминает запрос.
func (m *MockGateway) FetchTransactionInfo(ctx context.Context, txn domain.PaymentTransaction) (domain.TransactionInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.TransactionInfo{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, txn)
	if m.Err != nil {
		return domain.TransactionInfo{}, m.Err
	}

	info := domain.TransactionInfo{IsClosed: m.Info.IsClosed}
	if len(m.Info.Details) > 0 {
		info.Details = make(map[string]any, len(m.Info.Details))
		for k, v := range m.Info.Details {
			info.Details[k] = v
		}
	}
	return info, nil
}

// Calls возвращает транзакции, для которых запрашивались данные.
func (m *MockGateway) Calls() []domain.PaymentTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PaymentTransaction(nil), m.calls...)
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
