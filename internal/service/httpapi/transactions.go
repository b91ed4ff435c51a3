package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/sales/internal/service/transactions"
)

// MessageTransactionUpdateFailed — общее сообщение при сбое обновления транзакции.
const MessageTransactionUpdateFailed = transactions.MessageUpdateFailed

// TransactionAPI обновляет данные транзакций у платёжного провайдера.
type TransactionAPI struct {
	fetcher *transactions.Fetcher
}

type fetchResponse struct {
	Message               string         `json:"message"`
	TransactionID         int64          `json:"transaction_id"`
	IsClosed              bool           `json:"is_closed"`
	AdditionalInformation map[string]any `json:"additional_information,omitempty"`
}

// Fetch — POST /v1/transactions/:id/fetch
func (api *TransactionAPI) Fetch(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := api.fetcher.Fetch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, fetchResponse{
		Message:               result.Message,
		TransactionID:         result.Transaction.ID,
		IsClosed:              result.Transaction.IsClosed,
		AdditionalInformation: result.Transaction.AdditionalInformation,
	})
}
