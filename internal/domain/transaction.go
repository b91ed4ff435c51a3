package domain

import (
	"encoding/json"
	"fmt"
)

// Типы платёжных транзакций.
const (
	TxnTypeOrder         = "order"
	TxnTypeAuthorization = "authorization"
	TxnTypeCapture       = "capture"
	TxnTypeVoid          = "void"
	TxnTypeRefund        = "refund"
)

// PaymentTransaction — типизированное представление строки sales_payment_transaction.
type PaymentTransaction struct {
	ID                    int64
	OrderID               int64
	PaymentID             int64
	TxnID                 string
	ParentTxnID           string
	TxnType               string
	IsClosed              bool
	AdditionalInformation map[string]any
}

// TransactionInfo — ответ платёжного провайдера.
type TransactionInfo struct {
	// Details дополняет additional_information транзакции.
	Details map[string]any
	// IsClosed, если задан, обновляет флаг закрытия.
	IsClosed *bool
}

// PaymentTransactionFromEntity собирает транзакцию из сущности.
func PaymentTransactionFromEntity(e *Entity) (PaymentTransaction, error) {
	txn := PaymentTransaction{
		ID:          e.ID,
		TxnID:       e.String(ColumnTxnID),
		ParentTxnID: e.String(ColumnParentTxnID),
		TxnType:     e.String(ColumnTxnType),
	}
	if v, ok := e.Get(ColumnOrderID); ok {
		txn.OrderID, _ = AsInt64(v)
	}
	if v, ok := e.Get(ColumnPaymentID); ok {
		txn.PaymentID, _ = AsInt64(v)
	}
	if v, ok := e.Get(ColumnIsClosed); ok {
		txn.IsClosed, _ = AsBool(v)
	}

	info, err := DecodeAdditionalInformation(e.String(ColumnAdditionalInfo))
	if err != nil {
		return PaymentTransaction{}, err
	}
	txn.AdditionalInformation = info
	return txn, nil
}

// DecodeAdditionalInformation разбирает JSON из колонки additional_information.
func DecodeAdditionalInformation(raw string) (map[string]any, error) {
	info := make(map[string]any)
	if raw == "" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("decode additional information: %w", err)
	}
	return info, nil
}

// EncodeAdditionalInformation сериализует additional_information для записи.
func EncodeAdditionalInformation(info map[string]any) (string, error) {
	if len(info) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode additional information: %w", err)
	}
	return string(raw), nil
}
