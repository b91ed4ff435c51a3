// Package transactions обновляет данные платёжных транзакций у провайдера.
package transactions

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// Сообщения для пользователя.
const (
	MessageUpdated      = "The transaction details have been updated."
	MessageUpdateFailed = "We can't update the transaction details."
)

// EntityPersister загружает и сохраняет сущности одного типа.
type EntityPersister interface {
	Load(ctx context.Context, id int64) (*domain.Entity, error)
	Save(ctx context.Context, entity *domain.Entity) (*domain.Entity, error)
}

// Result — итог успешного обновления.
type Result struct {
	Message     string
	Transaction domain.PaymentTransaction
}

// Fetcher запрашивает актуальные данные транзакции и сохраняет их.
type Fetcher struct {
	persister EntityPersister
	gateway   domain.PaymentGateway
	logger    *log.Entry
}

// NewFetcher создаёт Fetcher.
func NewFetcher(persister EntityPersister, gateway domain.PaymentGateway, logger *log.Entry) *Fetcher {
	if logger == nil {
		logger = log.WithField("component", "transaction-fetcher")
	}
	return &Fetcher{persister: persister, gateway: gateway, logger: logger}
}

// Fetch обновляет транзакцию id.
//
// Отсутствующая транзакция — domain.ErrTransactionNotFound.
// *domain.UserError от провайдера возвращается как есть. Любая другая ошибка
// пишется в лог и заменяется на domain.ErrTransactionUpdateFailed.
func (f *Fetcher) Fetch(ctx context.Context, id int64) (Result, error) {
	entity, err := f.persister.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return Result{}, fmt.Errorf("transaction %d: %w", id, domain.ErrTransactionNotFound)
		}
		return Result{}, f.fail(id, err)
	}

	txn, err := f.importInfo(ctx, entity)
	if err != nil {
		if userErr, ok := domain.AsUserError(err); ok {
			return Result{}, userErr
		}
		return Result{}, f.fail(id, err)
	}

	return Result{Message: MessageUpdated, Transaction: txn}, nil
}

func (f *Fetcher) importInfo(ctx context.Context, entity *domain.Entity) (domain.PaymentTransaction, error) {
	txn, err := domain.PaymentTransactionFromEntity(entity)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}

	info, err := f.gateway.FetchTransactionInfo(ctx, txn)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}

	for k, v := range info.Details {
		txn.AdditionalInformation[k] = v
	}
	raw, err := domain.EncodeAdditionalInformation(txn.AdditionalInformation)
	if err != nil {
		return domain.PaymentTransaction{}, err
	}
	if len(info.Details) > 0 {
		entity.Set(domain.ColumnAdditionalInfo, raw)
	}
	if info.IsClosed != nil && *info.IsClosed != txn.IsClosed {
		txn.IsClosed = *info.IsClosed
		entity.Set(domain.ColumnIsClosed, txn.IsClosed)
	}

	if _, err := f.persister.Save(ctx, entity); err != nil {
		return domain.PaymentTransaction{}, err
	}
	return txn, nil
}

func (f *Fetcher) fail(id int64, err error) error {
	f.logger.WithError(err).WithField("transaction_id", id).Error("failed to update transaction details")
	return domain.ErrTransactionUpdateFailed
}
