package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

// MetricsService maneja el registro de Prometheus de la demo
type MetricsService struct {
	registry *prometheus.Registry
	jobName  string
}

// NewMetricsService crea un nuevo servicio de métricas
func NewMetricsService(jobName string) *MetricsService {
	registry := prometheus.NewRegistry()

	// Registrar métricas estándar de Go
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if jobName == "" {
		jobName = "glassflow_demo"
	}

	return &MetricsService{
		registry: registry,
		jobName:  jobName,
	}
}

// GetRegistry retorna el registro de Prometheus para registrar métricas personalizadas
func (ms *MetricsService) GetRegistry() *prometheus.Registry {
	return ms.registry
}

// Push envía el estado actual del registro a un Pushgateway.
// Una demo dura segundos, así que el scrape no siempre alcanza a verla.
func (ms *MetricsService) Push(gatewayURL string) error {
	if gatewayURL == "" {
		return nil
	}

	err := push.New(gatewayURL, ms.jobName).
		Gatherer(ms.registry).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}

	return nil
}
