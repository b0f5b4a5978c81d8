package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DemoMetrics contiene las métricas de una ejecución de la demo.
// Todos los métodos aceptan receptor nil para poder correr sin métricas.
type DemoMetrics struct {
	eventsPublished      *prometheus.CounterVec
	eventsDuplicated     *prometheus.CounterVec
	rowsAdded            *prometheus.GaugeVec
	verificationPassed   *prometheus.GaugeVec
	runDuration          *prometheus.HistogramVec
	topicCreationResults *prometheus.CounterVec
}

func NewDemoMetrics(registry *prometheus.Registry) *DemoMetrics {
	m := &DemoMetrics{
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demo_events_published_total",
				Help: "Eventos generados y publicados por topic",
			},
			[]string{"topic"},
		),
		eventsDuplicated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demo_events_duplicated_total",
				Help: "Eventos duplicados inyectados por topic",
			},
			[]string{"topic"},
		),
		rowsAdded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demo_rows_added",
				Help: "Filas nuevas observadas en la tabla sink durante la última ejecución",
			},
			[]string{"table"},
		),
		verificationPassed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demo_verification_passed",
				Help: "1 si la última verificación coincidió con lo esperado, 0 si no",
			},
			[]string{"kind"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demo_run_duration_seconds",
				Help:    "Duración total de la ejecución de la demo",
				Buckets: []float64{5, 10, 20, 30, 60, 120, 300, 600},
			},
			[]string{"kind"},
		),
		topicCreationResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demo_topic_creation_total",
				Help: "Resultados de creación de topics",
			},
			[]string{"topic", "result"},
		),
	}

	registry.MustRegister(
		m.eventsPublished,
		m.eventsDuplicated,
		m.rowsAdded,
		m.verificationPassed,
		m.runDuration,
		m.topicCreationResults,
	)

	return m
}

func (m *DemoMetrics) AddPublished(topic string, published int, duplicates int) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(topic).Add(float64(published))
	m.eventsDuplicated.WithLabelValues(topic).Add(float64(duplicates))
}

func (m *DemoMetrics) SetRowsAdded(table string, rows int64) {
	if m == nil {
		return
	}
	m.rowsAdded.WithLabelValues(table).Set(float64(rows))
}

func (m *DemoMetrics) SetVerification(kind string, passed bool) {
	if m == nil {
		return
	}
	value := 0.0
	if passed {
		value = 1
	}
	m.verificationPassed.WithLabelValues(kind).Set(value)
}

func (m *DemoMetrics) ObserveRun(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *DemoMetrics) IncTopicResult(topic string, result string) {
	if m == nil {
		return
	}
	m.topicCreationResults.WithLabelValues(topic, result).Inc()
}
