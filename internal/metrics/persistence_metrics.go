package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// Значения label result.
const (
	ResultOK              = "ok"
	ResultAllocationError = "allocation_error"
	ResultStorageError    = "storage_error"
	ResultError           = "error"
)

// PersistenceMetrics содержит метрики сохранения sales-сущностей.
type PersistenceMetrics struct {
	entitySaves *prometheus.CounterVec
	savedFields prometheus.Counter

	storageDuration *prometheus.HistogramVec
	storageErrors   *prometheus.CounterVec
	storageInflight prometheus.Gauge

	allocations        *prometheus.CounterVec
	allocationDuration prometheus.Histogram
}

// NewPersistenceMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewPersistenceMetrics() *PersistenceMetrics {
	return NewPersistenceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewPersistenceMetricsWithRegisterer регистрирует метрики в registerer.
func NewPersistenceMetricsWithRegisterer(registerer prometheus.Registerer) *PersistenceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PersistenceMetrics{
		entitySaves: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "sales_entity_saves_total",
			Help: "Total number of persisted sales entities grouped by type and kind.",
		}, []string{"entity_type", "kind"}),
		savedFields: registerCounter(registerer, prometheus.CounterOpts{
			Name: "sales_entity_saved_fields_total",
			Help: "Total number of columns written by entity saves.",
		}),
		storageDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "sales_storage_operation_duration_seconds",
			Help:    "Duration of storage adapter operations in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"op", "table"}),
		storageErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "sales_storage_operation_errors_total",
			Help: "Total number of failed storage adapter operations.",
		}, []string{"op", "table"}),
		storageInflight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "sales_storage_operations_in_flight",
			Help: "Number of storage adapter operations currently running.",
		}),
		allocations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "sales_increment_allocations_total",
			Help: "Total number of increment id allocations grouped by result.",
		}, []string{"entity_type", "result"}),
		allocationDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "sales_increment_allocation_duration_seconds",
			Help:    "Duration of increment id allocations in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// EntitySaved реализует domain.SaveObserver.
func (m *PersistenceMetrics) EntitySaved(_ context.Context, event domain.SaveEvent) {
	kind := "updated"
	if event.Created {
		kind = "created"
	}
	m.entitySaves.WithLabelValues(event.EntityType, kind).Inc()
	m.savedFields.Add(float64(len(event.Fields)))
}

// StorageStarted отмечает начало операции хранилища.
func (m *PersistenceMetrics) StorageStarted() {
	m.storageInflight.Inc()
}

// ObserveStorage фиксирует завершение операции хранилища.
func (m *PersistenceMetrics) ObserveStorage(op, table string, duration time.Duration, err error) {
	m.storageInflight.Dec()
	m.storageDuration.WithLabelValues(op, table).Observe(duration.Seconds())
	if err != nil {
		m.storageErrors.WithLabelValues(op, table).Inc()
	}
}

// ObserveAllocation фиксирует результат выдачи increment id.
func (m *PersistenceMetrics) ObserveAllocation(entityType string, duration time.Duration, err error) {
	m.allocationDuration.Observe(duration.Seconds())
	m.allocations.WithLabelValues(entityType, Result(err)).Inc()
}

// Result переводит ошибку в значение label result.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case domain.IsAllocationError(err):
		return ResultAllocationError
	case domain.IsStorageError(err):
		return ResultStorageError
	default:
		return ResultError
	}
}

var _ domain.SaveObserver = (*PersistenceMetrics)(nil)
