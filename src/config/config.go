package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/SOLUCIONESSYCOM/configuro"
	"github.com/SOLUCIONESSYCOM/scribe"
)

const DefaultPath = "config/demo.json"

type glassFlowConfig struct {
	Host                 string `json:"Host"`
	RequestTimeoutMs     int    `json:"RequestTimeoutMs"`
	StartupWaitSeconds   int    `json:"StartupWaitSeconds"`
	StatusPollIntervalMs int    `json:"StatusPollIntervalMs"`
	StopTimeoutSeconds   int    `json:"StopTimeoutSeconds"`
}

type GlassFlowConfig struct {
	*glassFlowConfig
}

func (c *GlassFlowConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c *GlassFlowConfig) StartupWait() time.Duration {
	return time.Duration(c.StartupWaitSeconds) * time.Second
}

func (c *GlassFlowConfig) StatusPollInterval() time.Duration {
	return time.Duration(c.StatusPollIntervalMs) * time.Millisecond
}

func (c *GlassFlowConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

type kafkaConfig struct {
	BrokerOverrides   map[string]string `json:"BrokerOverrides"`
	ClientID          string            `json:"ClientID,omitempty"`
	Partitions        int               `json:"Partitions"`
	ReplicationFactor int               `json:"ReplicationFactor"`
	// Punteros: 0 es un valor válido y distinto de "no configurado"
	LingerMs         *int   `json:"LingerMs,omitempty"`
	Retries          *int   `json:"Retries,omitempty"`
	BatchSize        int    `json:"BatchSize"`
	RequestTimeoutMs int    `json:"RequestTimeoutMs"`
	Acks             string `json:"Acks,omitempty"`
}

type KafkaConfig struct {
	*kafkaConfig
}

// ResolveBrokers reemplaza los brokers internos de docker por los expuestos al host.
func (c *KafkaConfig) ResolveBrokers(brokers []string) []string {
	resolved := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if override, ok := c.BrokerOverrides[b]; ok {
			resolved = append(resolved, override)
			continue
		}
		resolved = append(resolved, b)
	}
	return resolved
}

type clickHouseConfig struct {
	HostOverrides   map[string]string `json:"HostOverrides"`
	DefaultHttpPort int               `json:"DefaultHttpPort"`
	DialTimeoutMs   int               `json:"DialTimeoutMs"`
}

type ClickHouseConfig struct {
	*clickHouseConfig
}

func (c *ClickHouseConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMs) * time.Millisecond
}

type historyConfig struct {
	Path string `json:"Path"`
}

type HistoryConfig struct {
	*historyConfig
}

type metricsConfig struct {
	HttpPort       int    `json:"HttpPort"`
	PushGatewayURL string `json:"PushGatewayURL"`
	JobName        string `json:"JobName"`
}

type MetricsConfig struct {
	*metricsConfig
}

// AppConfig agrupa las secciones de config/demo.json. Todas tienen valores por defecto.
type AppConfig struct {
	Log        *scribe.ConfigLogger
	GlassFlow  *GlassFlowConfig
	Kafka      *KafkaConfig
	ClickHouse *ClickHouseConfig
	History    *HistoryConfig
	Metrics    *MetricsConfig
}

func Default() *AppConfig {
	return &AppConfig{
		GlassFlow: &GlassFlowConfig{&glassFlowConfig{
			Host:                 "http://localhost:8080",
			RequestTimeoutMs:     10000,
			StartupWaitSeconds:   10,
			StatusPollIntervalMs: 500,
			StopTimeoutSeconds:   60,
		}},
		Kafka: &KafkaConfig{&kafkaConfig{
			BrokerOverrides: map[string]string{
				"kafka:9094":                             "localhost:9093",
				"kafka:9092":                             "localhost:9092",
				"kafka.glassflow.svc.cluster.local:9092": "localhost:39092",
			},
			ClientID:          "glassflow-demo",
			Partitions:        1,
			ReplicationFactor: 1,
			LingerMs:          intPtr(5),
			Retries:           intPtr(3),
			RequestTimeoutMs:  30000,
			Acks:              "all",
		}},
		ClickHouse: &ClickHouseConfig{&clickHouseConfig{
			HostOverrides: map[string]string{
				"clickhouse": "localhost:8123",
			},
			DefaultHttpPort: 8443,
			DialTimeoutMs:   5000,
		}},
		History: &HistoryConfig{&historyConfig{
			Path: "glassflow_demo_history.db",
		}},
		Metrics: &MetricsConfig{&metricsConfig{
			JobName: "glassflow_demo",
		}},
	}
}

// Load lee el archivo de configuración de la demo. Si no existe se usan los valores por defecto.
func Load(path string) (*AppConfig, error) {
	appCfg := Default()

	if path == "" {
		return appCfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return appCfg, nil
		}
		return nil, fmt.Errorf("error al acceder al archivo de configuración %s: %w", path, err)
	}

	cfg, err := configuro.NewFromJsonFiles(true, path)
	if err != nil {
		return nil, fmt.Errorf("error al cargar el archivo de configuración: %w", err)
	}
	if !cfg.IsBeenLoaded() {
		return nil, fmt.Errorf("el archivo de configuración %s no fue cargado", path)
	}

	// Las secciones ausentes conservan los valores por defecto
	if logCfg, err := configuro.GetSection[scribe.ConfigLogger](cfg, "Log"); err == nil {
		appCfg.Log = logCfg
	}

	if section, err := configuro.GetSection[glassFlowConfig](cfg, "GlassFlow"); err == nil {
		mergeGlassFlow(appCfg.GlassFlow.glassFlowConfig, section)
	}

	if section, err := configuro.GetSection[kafkaConfig](cfg, "Kafka"); err == nil {
		mergeKafka(appCfg.Kafka.kafkaConfig, section)
	}

	if section, err := configuro.GetSection[clickHouseConfig](cfg, "ClickHouse"); err == nil {
		mergeClickHouse(appCfg.ClickHouse.clickHouseConfig, section)
	}

	if section, err := configuro.GetSection[historyConfig](cfg, "History"); err == nil {
		appCfg.History.Path = section.Path
	}

	if section, err := configuro.GetSection[metricsConfig](cfg, "Metrics"); err == nil {
		mergeMetrics(appCfg.Metrics.metricsConfig, section)
	}

	return appCfg, nil
}

func mergeGlassFlow(dst, src *glassFlowConfig) {
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.RequestTimeoutMs > 0 {
		dst.RequestTimeoutMs = src.RequestTimeoutMs
	}
	if src.StartupWaitSeconds > 0 {
		dst.StartupWaitSeconds = src.StartupWaitSeconds
	}
	if src.StatusPollIntervalMs > 0 {
		dst.StatusPollIntervalMs = src.StatusPollIntervalMs
	}
	if src.StopTimeoutSeconds > 0 {
		dst.StopTimeoutSeconds = src.StopTimeoutSeconds
	}
}

func mergeKafka(dst, src *kafkaConfig) {
	if src.BrokerOverrides != nil {
		dst.BrokerOverrides = src.BrokerOverrides
	}
	if src.ClientID != "" {
		dst.ClientID = src.ClientID
	}
	if src.Partitions > 0 {
		dst.Partitions = src.Partitions
	}
	if src.ReplicationFactor > 0 {
		dst.ReplicationFactor = src.ReplicationFactor
	}
	if src.LingerMs != nil && *src.LingerMs >= 0 {
		dst.LingerMs = src.LingerMs
	}
	if src.Retries != nil && *src.Retries >= 0 {
		dst.Retries = src.Retries
	}
	if src.BatchSize > 0 {
		dst.BatchSize = src.BatchSize
	}
	if src.RequestTimeoutMs > 0 {
		dst.RequestTimeoutMs = src.RequestTimeoutMs
	}
	if src.Acks != "" {
		dst.Acks = src.Acks
	}
}

func intPtr(v int) *int {
	return &v
}

func mergeClickHouse(dst, src *clickHouseConfig) {
	if src.HostOverrides != nil {
		dst.HostOverrides = src.HostOverrides
	}
	if src.DefaultHttpPort > 0 {
		dst.DefaultHttpPort = src.DefaultHttpPort
	}
	if src.DialTimeoutMs > 0 {
		dst.DialTimeoutMs = src.DialTimeoutMs
	}
}

func mergeMetrics(dst, src *metricsConfig) {
	dst.HttpPort = src.HttpPort
	dst.PushGatewayURL = src.PushGatewayURL
	if src.JobName != "" {
		dst.JobName = src.JobName
	}
}
