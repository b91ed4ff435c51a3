package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	"github.com/vladislavdragonenkov/sales/internal/service/sendfriend"
)

// ContentTypeProblemJSON — media type ответов с ошибкой (RFC 7807).
const ContentTypeProblemJSON = "application/problem+json"

// Problem — тело ответа с ошибкой.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Типы проблем.
const (
	TypeBadRequest      = "/problems/bad-request"
	TypeNotFound        = "/problems/not-found"
	TypeUnprocessable   = "/problems/unprocessable-entity"
	TypeTooManyRequests = "/problems/too-many-requests"
	TypeUnavailable     = "/problems/increment-id-unavailable"
	TypeInternal        = "/problems/internal-error"
)

func respondProblem(c *gin.Context, status int, problemType, title, detail string) {
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(status, Problem{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request.URL.Path,
	})
}

func respondBadRequest(c *gin.Context, err error) {
	respondProblem(c, http.StatusBadRequest, TypeBadRequest, "Bad Request", err.Error())
}

// respondError переводит доменную ошибку в HTTP-ответ.
// Детали StorageError и прочих внутренних ошибок наружу не отдаются.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrUnknownEntityType):
		respondProblem(c, http.StatusNotFound, TypeNotFound, "Unknown Entity Type", c.Param("type"))
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		respondProblem(c, http.StatusNotFound, TypeNotFound, "Resource Not Found", "")
	case domain.IsNotFound(err) && !domain.IsStorageError(err):
		respondProblem(c, http.StatusNotFound, TypeNotFound, "Resource Not Found", "")
	case sendfriend.IsLimitExceeded(err):
		respondProblem(c, http.StatusTooManyRequests, TypeTooManyRequests, "Too Many Requests", userMessage(err))
	case domain.IsAllocationError(err):
		respondProblem(c, http.StatusServiceUnavailable, TypeUnavailable, "Increment ID Unavailable", "")
	case domain.IsStorageError(err):
		respondProblem(c, http.StatusInternalServerError, TypeInternal, "Storage Error", "")
	case errors.Is(err, domain.ErrTransactionUpdateFailed):
		respondProblem(c, http.StatusInternalServerError, TypeInternal, "Internal Server Error", MessageTransactionUpdateFailed)
	default:
		if userErr, ok := domain.AsUserError(err); ok {
			respondProblem(c, http.StatusUnprocessableEntity, TypeUnprocessable, "Unprocessable Entity", userErr.Message)
			return
		}
		respondProblem(c, http.StatusInternalServerError, TypeInternal, "Internal Server Error", "")
	}
}

func userMessage(err error) string {
	if userErr, ok := domain.AsUserError(err); ok {
		return userErr.Message
	}
	return ""
}
