// Package httpapi — HTTP API сервиса на gin.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/sales/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/sales/internal/service/sendfriend"
	"github.com/vladislavdragonenkov/sales/internal/service/transactions"
)

// Dependencies — сервисы, которые обслуживает API.
type Dependencies struct {
	Entities     *lifecycle.Registry
	Transactions *transactions.Fetcher
	SendFriend   *sendfriend.Service
}

type routerConfig struct {
	serviceName    string
	tracerProvider trace.TracerProvider
	logger         *log.Entry
}

// Option настраивает роутер.
type Option func(*routerConfig)

// WithTracerProvider включает otelgin middleware с провайдером tp.
func WithTracerProvider(serviceName string, tp trace.TracerProvider) Option {
	return func(cfg *routerConfig) {
		cfg.serviceName = serviceName
		cfg.tracerProvider = tp
	}
}

// WithLogger задаёт logger для журнала запросов.
func WithLogger(logger *log.Entry) Option {
	return func(cfg *routerConfig) {
		cfg.logger = logger
	}
}

// NewRouter собирает gin.Engine. Сервисы с nil-зависимостью не регистрируются.
func NewRouter(deps Dependencies, options ...Option) *gin.Engine {
	cfg := routerConfig{}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.WithField("component", "http-api")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.tracerProvider != nil {
		router.Use(otelgin.Middleware(cfg.serviceName, otelgin.WithTracerProvider(cfg.tracerProvider)))
	}
	router.Use(requestLogger(cfg.logger))

	v1 := router.Group("/v1")
	if deps.Entities != nil {
		api := &EntityAPI{registry: deps.Entities}
		v1.POST("/entities/:type", api.Create)
		v1.GET("/entities/:type/:id", api.Get)
		v1.PUT("/entities/:type/:id", api.Update)
	}
	if deps.Transactions != nil {
		api := &TransactionAPI{fetcher: deps.Transactions}
		v1.POST("/transactions/:id/fetch", api.Fetch)
	}
	if deps.SendFriend != nil {
		api := &SendFriendAPI{service: deps.SendFriend}
		v1.GET("/products/:id/sendfriend", api.Form)
		v1.POST("/products/:id/sendfriend", api.Send)
	}

	router.NoRoute(func(c *gin.Context) {
		respondProblem(c, http.StatusNotFound, TypeNotFound, "Resource Not Found", "")
	})

	return router
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(started).String(),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last().Err).Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondProblem(c, http.StatusBadRequest, TypeBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}
