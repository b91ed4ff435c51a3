package instrumented

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// Sequence декорирует domain.SequenceGenerator одного типа сущности.
type Sequence struct {
	inner      domain.SequenceGenerator
	entityCode string
	cfg        config
}

// NewSequence оборачивает inner.
func NewSequence(inner domain.SequenceGenerator, entityCode string, opts ...Option) *Sequence {
	return &Sequence{inner: inner, entityCode: entityCode, cfg: newConfig(opts)}
}

// SequenceFactory оборачивает каждый генератор, выданный factory.
func SequenceFactory(factory func(entityCode string) domain.SequenceGenerator, opts ...Option) func(entityCode string) domain.SequenceGenerator {
	return func(entityCode string) domain.SequenceGenerator {
		return NewSequence(factory(entityCode), entityCode, opts...)
	}
}

func (s *Sequence) Next(ctx context.Context, partitionKey string) (string, error) {
	ctx, span := s.cfg.tracer.Start(ctx, "Sequence.next",
		trace.WithAttributes(
			attribute.String("sales.entity_type", s.entityCode),
			attribute.String("sales.partition_key", partitionKey)))
	defer span.End()

	started := time.Now()
	value, err := s.inner.Next(ctx, partitionKey)
	if s.cfg.metrics != nil {
		s.cfg.metrics.ObserveAllocation(s.entityCode, time.Since(started), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.cfg.logger.WithError(err).WithFields(log.Fields{
			"entity_type":   s.entityCode,
			"partition_key": partitionKey,
		}).Warn("increment id allocation failed")
		return "", err
	}

	span.SetAttributes(attribute.String("sales.increment_id", value))
	span.SetStatus(codes.Ok, "")
	return value, nil
}

var _ domain.SequenceGenerator = (*Sequence)(nil)
