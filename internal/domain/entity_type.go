package domain

import "sort"

// Table адресует таблицу хранилища и её первичный ключ.
type Table struct {
	Name    string
	IDField string
}

// EntityType описывает тип сохраняемой сущности.
type EntityType struct {
	// Code — пространство имён последовательности increment id (order, invoice...).
	Code string
	// Table — таблица хранилища.
	Table Table
	// Incremental — назначать ли increment id перед первой записью.
	Incremental bool
	// Columns — полный набор колонок таблицы.
	Columns []string
}

// HasColumn проверяет наличие колонки в описании типа.
func (t EntityType) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Коды типов сущностей.
const (
	EntityOrder       = "order"
	EntityInvoice     = "invoice"
	EntityCreditmemo  = "creditmemo"
	EntityShipment    = "shipment"
	EntityTransaction = "transaction"
)

// Колонки платёжной транзакции.
const (
	ColumnTransactionID  = "transaction_id"
	ColumnOrderID        = "order_id"
	ColumnPaymentID      = "payment_id"
	ColumnTxnID          = "txn_id"
	ColumnParentTxnID    = "parent_txn_id"
	ColumnTxnType        = "txn_type"
	ColumnIsClosed       = "is_closed"
	ColumnAdditionalInfo = "additional_information"
)

var (
	// OrderType — заказ.
	OrderType = EntityType{
		Code:        EntityOrder,
		Table:       Table{Name: "sales_order", IDField: ColumnEntityID},
		Incremental: true,
		Columns: []string{
			ColumnEntityID, ColumnIncrementID, ColumnStoreID,
			"customer_email", "state", "status", "grand_total", "base_currency_code",
			ColumnCreatedAt, ColumnUpdatedAt,
		},
	}
	// InvoiceType — инвойс.
	InvoiceType = EntityType{
		Code:        EntityInvoice,
		Table:       Table{Name: "sales_invoice", IDField: ColumnEntityID},
		Incremental: true,
		Columns: []string{
			ColumnEntityID, ColumnIncrementID, ColumnStoreID, ColumnOrderID,
			"state", "grand_total", ColumnCreatedAt, ColumnUpdatedAt,
		},
	}
	// CreditmemoType — возврат.
	CreditmemoType = EntityType{
		Code:        EntityCreditmemo,
		Table:       Table{Name: "sales_creditmemo", IDField: ColumnEntityID},
		Incremental: true,
		Columns: []string{
			ColumnEntityID, ColumnIncrementID, ColumnStoreID, ColumnOrderID,
			"state", "grand_total", ColumnCreatedAt, ColumnUpdatedAt,
		},
	}
	// ShipmentType — отгрузка.
	ShipmentType = EntityType{
		Code:        EntityShipment,
		Table:       Table{Name: "sales_shipment", IDField: ColumnEntityID},
		Incremental: true,
		Columns: []string{
			ColumnEntityID, ColumnIncrementID, ColumnStoreID, ColumnOrderID,
			"total_qty", ColumnCreatedAt, ColumnUpdatedAt,
		},
	}
	// TransactionType — платёжная транзакция. Без increment id и без updated_at.
	TransactionType = EntityType{
		Code:        EntityTransaction,
		Table:       Table{Name: "sales_payment_transaction", IDField: ColumnTransactionID},
		Incremental: false,
		Columns: []string{
			ColumnTransactionID, ColumnOrderID, ColumnPaymentID, ColumnTxnID,
			ColumnParentTxnID, ColumnTxnType, ColumnIsClosed, ColumnAdditionalInfo,
			ColumnCreatedAt,
		},
	}
)

// EntityTypes возвращает все известные типы сущностей по коду.
func EntityTypes() map[string]EntityType {
	return map[string]EntityType{
		EntityOrder:       OrderType,
		EntityInvoice:     InvoiceType,
		EntityCreditmemo:  CreditmemoType,
		EntityShipment:    ShipmentType,
		EntityTransaction: TransactionType,
	}
}

// LookupEntityType ищет тип сущности по коду.
func LookupEntityType(code string) (EntityType, error) {
	t, ok := EntityTypes()[code]
	if !ok {
		return EntityType{}, ErrUnknownEntityType
	}
	return t, nil
}

// EntityTypeCodes возвращает отсортированные коды типов.
func EntityTypeCodes() []string {
	types := EntityTypes()
	codes := make([]string, 0, len(types))
	for code := range types {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
