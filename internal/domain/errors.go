package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation — класс ошибок выделения increment id.
	ErrAllocation = errors.New("increment id allocation failed")
	// ErrStorage — класс ошибок записи/чтения строки.
	ErrStorage = errors.New("storage operation failed")
	// ErrEntityNotFound возвращается, если строка сущности не найдена.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrEntityNotPersisted — операция требует сохранённой сущности.
	ErrEntityNotPersisted = errors.New("entity is not persisted")
	// ErrUnknownEntityType — неизвестный код типа сущности.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrUnknownTable — хранилище не знает таблицу.
	ErrUnknownTable = errors.New("unknown table")
	// ErrInvalidPartitionKey — ключ последовательности не в формате store_<id>.
	ErrInvalidPartitionKey = errors.New("invalid partition key")
	// ErrTransactionNotFound — платёжная транзакция не найдена.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionUpdateFailed — общая ошибка обновления транзакции, детали только в логе.
	ErrTransactionUpdateFailed = errors.New("transaction details update failed")
	// ErrProductNotFound — товар не найден (или не виден в витрине).
	ErrProductNotFound = errors.New("product not found")
	// ErrSendLimitExceeded — превышен лимит отправок "рассказать другу".
	ErrSendLimitExceeded = errors.New("send to friend limit exceeded")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// AllocationError — генератор последовательности не смог выдать increment id.
// Запись при этом не выполняется.
type AllocationError struct {
	PartitionKey string
	Err          error
}

func (e *AllocationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("allocate increment id for %s", e.PartitionKey)
	}
	return fmt.Sprintf("allocate increment id for %s: %v", e.PartitionKey, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// Is относит ошибку к классу ErrAllocation.
func (e *AllocationError) Is(target error) bool { return target == ErrAllocation }

// NewAllocationError оборачивает err, если он ещё не AllocationError.
func NewAllocationError(partitionKey string, err error) error {
	var allocErr *AllocationError
	if errors.As(err, &allocErr) {
		return err
	}
	return &AllocationError{PartitionKey: partitionKey, Err: err}
}

// StorageError — ошибка адаптера хранилища при записи или чтении строки.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s", e.Op, e.Table)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is относит ошибку к классу ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError оборачивает err, если он ещё не StorageError.
func NewStorageError(op, table string, err error) error {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Op: op, Table: table, Err: err}
}

// UserError несёт сообщение, которое можно показать пользователю как есть.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// NewUserError создаёт ошибку с сообщением для пользователя.
func NewUserError(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// IsAllocationError проверяет, что ошибка — сбой выделения increment id.
func IsAllocationError(err error) bool {
	return errors.Is(err, ErrAllocation)
}

// IsStorageError проверяет, что ошибка — сбой хранилища.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsNotFound проверяет отсутствие строки (в том числе внутри StorageError).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// AsUserError извлекает пользовательскую ошибку из цепочки.
func AsUserError(err error) (*UserError, bool) {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr, true
	}
	return nil, false
}
