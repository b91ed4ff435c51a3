package domain

import (
	"context"
	"time"
)

// StorageAdapter выполняет чтение и запись строк реляционного хранилища.
// Любая ошибка возвращается как *StorageError.
type StorageAdapter interface {
	// Insert вставляет строку и возвращает назначенный хранилищем идентификатор.
	Insert(ctx context.Context, table Table, fields map[string]any) (int64, error)
	// Update обновляет строку по идентификатору.
	Update(ctx context.Context, table Table, id int64, fields map[string]any) error
	// DescribeColumns возвращает набор колонок таблицы.
	DescribeColumns(ctx context.Context, table Table) (map[string]struct{}, error)
	// FetchRow читает указанные колонки строки. found=false, если строки нет.
	FetchRow(ctx context.Context, table Table, columns []string, id int64) (row map[string]any, found bool, err error)
}

// SequenceGenerator выдаёт следующий increment id для партиции (магазина).
// Два конкурентных вызова для одного ключа никогда не получают одинаковое
// значение. Ошибка возвращается как *AllocationError.
type SequenceGenerator interface {
	Next(ctx context.Context, partitionKey string) (string, error)
}

// AttributeSaver сохраняет отдельные атрибуты уже записанной сущности.
type AttributeSaver interface {
	SaveAttribute(ctx context.Context, entityType EntityType, entity *Entity, attributes []string) error
}

// SaveEvent описывает успешно сохранённую сущность.
type SaveEvent struct {
	EntityType  string
	EntityID    int64
	IncrementID string
	StoreID     int64
	Created     bool
	Fields      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SaveObserver получает уведомления о сохранённых сущностях.
// Наблюдатель не может сорвать сохранение: запись к этому моменту уже выполнена.
type SaveObserver interface {
	EntitySaved(ctx context.Context, event SaveEvent)
}

// SaveObserverFunc адаптирует функцию к SaveObserver.
type SaveObserverFunc func(ctx context.Context, event SaveEvent)

// EntitySaved вызывает f.
func (f SaveObserverFunc) EntitySaved(ctx context.Context, event SaveEvent) {
	f(ctx, event)
}

// PaymentGateway запрашивает у платёжного провайдера актуальные данные транзакции.
type PaymentGateway interface {
	FetchTransactionInfo(ctx context.Context, txn PaymentTransaction) (TransactionInfo, error)
}

// ProductCatalog отвечает на вопрос, существует ли товар в витрине.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID int64) (Product, error)
}

// SendLogRepository хранит журнал отправок "рассказать другу".
type SendLogRepository interface {
	Record(ctx context.Context, record SendRecord) error
	CountSince(ctx context.Context, sender string, since time.Time) (int, error)
	DeleteBefore(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
