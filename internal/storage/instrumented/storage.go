// Package instrumented оборачивает хранилище и генератор последовательностей
// трассировкой OpenTelemetry и метриками Prometheus.
package instrumented

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	"github.com/vladislavdragonenkov/sales/internal/metrics"
)

const tracerName = "github.com/vladislavdragonenkov/sales/internal/storage/instrumented"

type config struct {
	tracer  trace.Tracer
	metrics *metrics.PersistenceMetrics
	logger  *log.Entry
}

// Option настраивает декораторы.
type Option func(*config)

// WithTracer задаёт tracer. По умолчанию используется noop.
func WithTracer(tr trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tr
	}
}

// WithMetrics включает запись метрик.
func WithMetrics(m *metrics.PersistenceMetrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithLogger задаёт логгер для ошибок операций.
func WithLogger(logger *log.Entry) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newConfig(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.tracer == nil {
		cfg.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if cfg.logger == nil {
		cfg.logger = log.WithField("component", "storage")
	}
	return cfg
}

// Storage декорирует domain.StorageAdapter.
type Storage struct {
	inner domain.StorageAdapter
	cfg   config
}

// NewStorage оборачивает inner.
func NewStorage(inner domain.StorageAdapter, opts ...Option) *Storage {
	return &Storage{inner: inner, cfg: newConfig(opts)}
}

func (s *Storage) Insert(ctx context.Context, table domain.Table, fields map[string]any) (int64, error) {
	ctx, span, done := s.start(ctx, "insert", table,
		attribute.Int("db.sales.fields", len(fields)))
	id, err := s.inner.Insert(ctx, table, fields)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.sales.id", id))
	}
	done(err)
	return id, err
}

func (s *Storage) Update(ctx context.Context, table domain.Table, id int64, fields map[string]any) error {
	ctx, _, done := s.start(ctx, "update", table,
		attribute.Int64("db.sales.id", id),
		attribute.Int("db.sales.fields", len(fields)))
	err := s.inner.Update(ctx, table, id, fields)
	done(err)
	return err
}

func (s *Storage) DescribeColumns(ctx context.Context, table domain.Table) (map[string]struct{}, error) {
	ctx, _, done := s.start(ctx, "describe", table)
	columns, err := s.inner.DescribeColumns(ctx, table)
	done(err)
	return columns, err
}

func (s *Storage) FetchRow(ctx context.Context, table domain.Table, columns []string, id int64) (map[string]any, bool, error) {
	ctx, span, done := s.start(ctx, "fetch", table,
		attribute.Int64("db.sales.id", id),
		attribute.StringSlice("db.sales.columns", columns))
	row, found, err := s.inner.FetchRow(ctx, table, columns, id)
	if err == nil {
		span.SetAttributes(attribute.Bool("db.sales.found", found))
	}
	done(err)
	return row, found, err
}

func (s *Storage) start(ctx context.Context, op string, table domain.Table, attrs ...attribute.KeyValue) (context.Context, trace.Span, func(error)) {
	attrs = append(attrs,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", table.Name))
	ctx, span := s.cfg.tracer.Start(ctx, "Storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))

	if s.cfg.metrics != nil {
		s.cfg.metrics.StorageStarted()
	}
	started := time.Now()

	return ctx, span, func(err error) {
		defer span.End()
		if s.cfg.metrics != nil {
			s.cfg.metrics.ObserveStorage(op, table.Name, time.Since(started), err)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.cfg.logger.WithError(err).WithFields(log.Fields{
				"op":    op,
				"table": table.Name,
			}).Debug("storage operation failed")
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

var _ domain.StorageAdapter = (*Storage)(nil)
