package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — набор Prometheus метрик сборки графов.
//
// Все методы безопасны для nil-получателя: граф без метрик
// просто ничего не записывает.
type Metrics struct {
	nodesCreated       *prometheus.CounterVec
	relationsAdded     *prometheus.CounterVec
	validations        *prometheus.CounterVec
	validationDuration prometheus.Histogram
	snapshotsStored    *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
// Для глобального реестра передайте prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		nodesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depsgraph",
			Name:      "nodes_created_total",
			Help:      "Number of graph nodes created, by node kind.",
		}, []string{"kind"}),
		relationsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depsgraph",
			Name:      "relations_added_total",
			Help:      "Number of relations added, by relation kind.",
		}, []string{"kind"}),
		validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depsgraph",
			Name:      "validations_total",
			Help:      "Number of link validations, by result.",
		}, []string{"result"}),
		validationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "depsgraph",
			Name:      "validation_duration_seconds",
			Help:      "Duration of link validation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		snapshotsStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depsgraph",
			Name:      "snapshots_stored_total",
			Help:      "Number of graph snapshots stored, by store backend.",
		}, []string{"store"}),
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depsgraph",
			Name:      "events_published_total",
			Help:      "Number of events published, by routing key.",
		}, []string{"routing_key"}),
	}
}

// NodeCreated учитывает созданный узел.
func (m *Metrics) NodeCreated(kind string) {
	if m == nil {
		return
	}
	m.nodesCreated.WithLabelValues(kind).Inc()
}

// RelationAdded учитывает добавленную связь.
func (m *Metrics) RelationAdded(kind string) {
	if m == nil {
		return
	}
	m.relationsAdded.WithLabelValues(kind).Inc()
}

// ValidationDone учитывает завершённую валидацию связей.
func (m *Metrics) ValidationDone(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.validations.WithLabelValues(result).Inc()
	m.validationDuration.Observe(d.Seconds())
}

// SnapshotStored учитывает сохранённый снимок.
func (m *Metrics) SnapshotStored(store string) {
	if m == nil {
		return
	}
	m.snapshotsStored.WithLabelValues(store).Inc()
}

// EventPublished учитывает опубликованное событие.
func (m *Metrics) EventPublished(routingKey string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(routingKey).Inc()
}
