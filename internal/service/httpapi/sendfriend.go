package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/sales/internal/service/sendfriend"
)

// SendFriendAPI обслуживает форму "рассказать другу".
type SendFriendAPI struct {
	service *sendfriend.Service
}

// Form — GET /v1/products/:id/sendfriend
func (api *SendFriendAPI) Form(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	state, err := api.service.Prepare(c.Request.Context(), id, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Send — POST /v1/products/:id/sendfriend
func (api *SendFriendAPI) Send(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := api.service.Record(c.Request.Context(), id, c.ClientIP()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
