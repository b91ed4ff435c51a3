package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	"github.com/vladislavdragonenkov/sales/internal/service/lifecycle"
)

// SaveEntityRequest — тело запроса сохранения сущности.
type SaveEntityRequest struct {
	StoreID         int64          `json:"store_id"`
	IncrementID     string         `json:"increment_id,omitempty"`
	ForceObjectSave bool           `json:"force_object_save,omitempty"`
	Attributes      map[string]any `json:"attributes"`
}

// EntityResponse — представление сохранённой сущности.
type EntityResponse struct {
	Type        string         `json:"type"`
	ID          int64          `json:"id"`
	IncrementID string         `json:"increment_id,omitempty"`
	StoreID     int64          `json:"store_id"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
	Attributes  map[string]any `json:"attributes"`
}

// EntityAPI сохраняет и читает sales-сущности через жизненный цикл.
type EntityAPI struct {
	registry *lifecycle.Registry
}

// Create — POST /v1/entities/:type
func (api *EntityAPI) Create(c *gin.Context) {
	persister, ok := api.persister(c)
	if !ok {
		return
	}
	req, ok := bindSaveRequest(c, persister.EntityType())
	if !ok {
		return
	}

	entity := domain.NewEntity(req.StoreID)
	entity.IncrementID = req.IncrementID
	entity.ForceObjectSave = req.ForceObjectSave
	for k, v := range req.Attributes {
		entity.Set(k, v)
	}

	if _, err := persister.Save(c.Request.Context(), entity); err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if entity.IsNew() {
		status = http.StatusAccepted
	}
	c.JSON(status, toEntityResponse(persister.EntityType().Code, entity))
}

// Get — GET /v1/entities/:type/:id
func (api *EntityAPI) Get(c *gin.Context) {
	persister, ok := api.persister(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entity, err := persister.Load(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntityResponse(persister.EntityType().Code, entity))
}

// Update — PUT /v1/entities/:type/:id
func (api *EntityAPI) Update(c *gin.Context) {
	persister, ok := api.persister(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindSaveRequest(c, persister.EntityType())
	if !ok {
		return
	}

	ctx := c.Request.Context()
	entity, err := persister.Load(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.IncrementID != "" && entity.IncrementID == "" {
		entity.IncrementID = req.IncrementID
	}
	entity.ForceObjectSave = req.ForceObjectSave
	for k, v := range req.Attributes {
		entity.Set(k, v)
	}

	if _, err := persister.Save(ctx, entity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntityResponse(persister.EntityType().Code, entity))
}

func (api *EntityAPI) persister(c *gin.Context) (*lifecycle.Persister, bool) {
	persister, err := api.registry.Get(c.Param("type"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return persister, true
}

// Колонки, которыми владеет сервер; в attributes их передавать нельзя.
var reservedAttributes = []string{
	domain.ColumnEntityID,
	domain.ColumnIncrementID,
	domain.ColumnStoreID,
	domain.ColumnCreatedAt,
	domain.ColumnUpdatedAt,
}

func bindSaveRequest(c *gin.Context, entityType domain.EntityType) (SaveEntityRequest, bool) {
	var req SaveEntityRequest

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, err)
		return req, false
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		respondBadRequest(c, fmt.Errorf("decode request: %w", err))
		return req, false
	}
	if req.StoreID < 0 {
		respondBadRequest(c, errors.New("store_id must not be negative"))
		return req, false
	}
	for k, v := range req.Attributes {
		if k == entityType.Table.IDField || lo.Contains(reservedAttributes, k) {
			respondBadRequest(c, fmt.Errorf("attribute %q is managed by the server", k))
			return req, false
		}
		req.Attributes[k] = normalizeNumber(v)
	}
	return req, true
}

// normalizeNumber превращает json.Number в int64 или float64.
func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func toEntityResponse(code string, entity *domain.Entity) EntityResponse {
	resp := EntityResponse{
		Type:        code,
		ID:          entity.ID,
		IncrementID: entity.IncrementID,
		StoreID:     entity.StoreID,
		Attributes:  entity.Data(),
	}
	if !entity.CreatedAt.IsZero() {
		createdAt := entity.CreatedAt
		resp.CreatedAt = &createdAt
	}
	if !entity.UpdatedAt.IsZero() {
		updatedAt := entity.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
