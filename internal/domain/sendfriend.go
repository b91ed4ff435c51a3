package domain

import "time"

// Product — минимальное представление товара для "рассказать другу".
type Product struct {
	ID      int64
	Name    string
	Visible bool
}

// SendRecord — одна отправка "рассказать другу".
type SendRecord struct {
	ID        string
	ProductID int64
	// Sender идентифицирует отправителя (IP или идентификатор покупателя).
	Sender string
	SentAt time.Time
}
