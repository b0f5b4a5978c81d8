package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/clickhouse"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/config"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/console"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/glassflow"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/history"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/kafka"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/sink"
)

// Margen sobre max_delay_time antes de contar filas.
const flushGrace = 2 * time.Second

var (
	ErrDeclined           = errors.New("replacement of running pipeline declined")
	ErrGlassFlowDown      = errors.New("glassflow is not running")
	ErrVerificationFailed = errors.New("verification failed")
	ErrTopicCreation      = errors.New("topic creation failed")
	ErrHistoryDisabled    = errors.New("run history is disabled")
)

type Demo struct {
	cfg            *config.AppConfig
	logger         observability.Logger
	console        *console.Console
	pipelines      PipelineAPI
	metrics        *observability.DemoMetrics
	metricsService *observability.MetricsService
	history        RunHistory

	openWarehouse   func(ctx context.Context, sink models.SinkConfig) (Warehouse, error)
	openTopicAdmin  func(params models.ConnectionParams) (TopicAdmin, error)
	openSinkFactory func(params models.ConnectionParams) (sink.SinkFactory, error)

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewDemo(ctx context.Context, cfg *config.AppConfig, out *console.Console) (*Demo, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metricsService := observability.NewMetricsService(cfg.Metrics.JobName)

	pipelines := glassflow.NewClient(cfg.GlassFlow.Host, cfg.GlassFlow.RequestTimeout(), logger).
		WithPollInterval(cfg.GlassFlow.StatusPollInterval())

	d := &Demo{
		cfg:            cfg,
		logger:         logger,
		console:        out,
		pipelines:      pipelines,
		metrics:        observability.NewDemoMetrics(metricsService.GetRegistry()),
		metricsService: metricsService,
		sleep:          sleepContext,
		now:            time.Now,
	}

	d.openWarehouse = d.connectWarehouse
	d.openTopicAdmin = d.connectTopicAdmin
	d.openSinkFactory = d.connectSinkFactory

	if cfg.History.Path != "" {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			logger.Warn(ctx, "No se pudo abrir el historial, se continúa sin él", err, "path", cfg.History.Path)
		} else {
			d.history = store
		}
	}

	logger.Debug(ctx, "Demo inicializada", "glassflow", cfg.GlassFlow.Host, "history", cfg.History.Path)

	return d, nil
}

func (d *Demo) Logger() observability.Logger {
	return d.logger
}

func (d *Demo) MetricsService() *observability.MetricsService {
	return d.metricsService
}

func (d *Demo) Close(ctx context.Context) error {
	d.logger.Trace(ctx, "Cerrando demo")

	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Warn(ctx, "Error cerrando historial", err)
			return err
		}
		d.history = nil
	}

	return nil
}

func (d *Demo) connectWarehouse(ctx context.Context, sinkCfg models.SinkConfig) (Warehouse, error) {
	chCfg := d.cfg.ClickHouse

	opts, err := clickhouse.OptionsFromSink(sinkCfg, chCfg.HostOverrides, chCfg.DefaultHttpPort, chCfg.DialTimeout())
	if err != nil {
		return nil, err
	}

	client, err := clickhouse.Open(ctx, opts, d.logger)
	if err != nil {
		return nil, err
	}

	return client, nil
}

func (d *Demo) serverConfigs(params models.ConnectionParams) (brokers []string, clientID string) {
	return d.cfg.Kafka.ResolveBrokers(params.Brokers), d.cfg.Kafka.ClientID
}

func (d *Demo) connectTopicAdmin(params models.ConnectionParams) (TopicAdmin, error) {
	brokers, clientID := d.serverConfigs(params)

	svrCfgs, err := kafka.NewServerConfigs(brokers, &clientID)
	if err != nil {
		return nil, err
	}

	adminCfg, err := kafka.NewAdminCgfWithSvrCfgs(svrCfgs, kafka.SecurityFromConnectionParams(params))
	if err != nil {
		return nil, err
	}
	adminCfg.WithRequestTimeoutMs(d.cfg.Kafka.RequestTimeoutMs).WithRetries(*d.cfg.Kafka.Retries)

	admin, err := kafka.NewAdminService(adminCfg, d.logger)
	if err != nil {
		return nil, err
	}

	return admin, nil
}

func (d *Demo) connectSinkFactory(params models.ConnectionParams) (sink.SinkFactory, error) {
	brokers, clientID := d.serverConfigs(params)

	svrCfgs, err := kafka.NewServerConfigs(brokers, &clientID)
	if err != nil {
		return nil, err
	}

	producerCfg, err := kafka.NewProducerCgfWithSvrCfgs(svrCfgs, kafka.SecurityFromConnectionParams(params))
	if err != nil {
		return nil, err
	}

	acks, err := kafka.ParseACKs(d.cfg.Kafka.Acks)
	if err != nil {
		return nil, err
	}
	if producerCfg, err = producerCfg.WithACKs(acks); err != nil {
		return nil, err
	}

	producerCfg.WithLingerMs(*d.cfg.Kafka.LingerMs).
		WithBatchSize(d.cfg.Kafka.BatchSize).
		WithRetries(*d.cfg.Kafka.Retries)

	factory, err := sink.NewKafkaSinkFactory(producerCfg, d.logger)
	if err != nil {
		return nil, err
	}

	d.logger.Info(context.Background(), "Usando Kafka sink", "brokers", brokers)

	return factory, nil
}

// log imprime la línea de estado; una línea mal armada solo se registra en el logger.
func (d *Demo) log(ctx context.Context, line console.Line) {
	if err := d.console.Log(line); err != nil {
		d.logger.Error(ctx, "Línea de estado inválida", err, "message", line.Message)
	}
}

// wait muestra un spinner mientras duerme d, cortando si se cancela ctx.
func (d *Demo) wait(ctx context.Context, message string, dur time.Duration) error {
	stop := d.console.Spinner(message)
	defer stop()

	return d.sleep(ctx, dur)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
