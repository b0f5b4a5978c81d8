package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/kafka"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
	confluentkafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const flushPollMs = 100

type KafkaSinkFactory struct {
	producerCfg *kafka.ProducerConfig
	logger      observability.Logger
	mu          sync.Mutex
	sinks       map[string]*KafkaSink
}

func NewKafkaSinkFactory(producerCfg *kafka.ProducerConfig, logger observability.Logger) (*KafkaSinkFactory, error) {
	if producerCfg == nil {
		return nil, fmt.Errorf("producer config is required")
	}

	return &KafkaSinkFactory{
		producerCfg: producerCfg,
		logger:      logger,
		sinks:       make(map[string]*KafkaSink),
	}, nil
}

// CreateSink devuelve el sink del topic. Cada topic tiene su propio producer y monitor de entregas.
func (ksf *KafkaSinkFactory) CreateSink(topic string, keyField string) (EventSink, error) {
	ksf.mu.Lock()
	defer ksf.mu.Unlock()

	if s, exists := ksf.sinks[topic]; exists {
		return s, nil
	}

	producer, err := kafka.NewProducerService(ksf.producerCfg, ksf.logger)
	if err != nil {
		return nil, fmt.Errorf("create producer service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	monitor := &deliveryMonitor{
		reports: producer.DeliveryReports,
		topic:   topic,
		logger:  ksf.logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	monitor.start()

	s := &KafkaSink{
		topic:    topic,
		keyField: keyField,
		logger:   ksf.logger,
		producer: producer,
		monitor:  monitor,
	}
	ksf.sinks[topic] = s

	return s, nil
}

func (ksf *KafkaSinkFactory) Close() error {
	ksf.mu.Lock()
	defer ksf.mu.Unlock()

	for topic, s := range ksf.sinks {
		s.shutdown()
		delete(ksf.sinks, topic)
	}

	return nil
}

// deliveryMonitor consume los delivery reports del producer y lleva la cuenta
// de los mensajes confirmados y fallidos.
type deliveryMonitor struct {
	reports <-chan confluentkafka.Event
	topic   string
	logger  observability.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	inflight sync.WaitGroup

	mu        sync.Mutex
	delivered int
	failed    int
	firstErr  error
}

func (dm *deliveryMonitor) start() {
	dm.wg.Add(1)
	go dm.run()
}

func (dm *deliveryMonitor) run() {
	defer dm.wg.Done()

	for {
		select {
		case <-dm.ctx.Done():
			dm.logger.Trace(dm.ctx, "DeliveryMonitor stopped by context", "topic", dm.topic)
			return
		case e, ok := <-dm.reports:
			if !ok {
				return
			}
			dm.handle(e)
		}
	}
}

func (dm *deliveryMonitor) handle(e confluentkafka.Event) {
	switch ev := e.(type) {
	case *confluentkafka.Message:
		dm.record(ev.TopicPartition.Error)
	case confluentkafka.Error:
		dm.logger.Error(dm.ctx, "Error del cliente de Kafka", ev, "topic", dm.topic)
	}
}

func (dm *deliveryMonitor) record(err error) {
	dm.mu.Lock()
	if err != nil {
		dm.failed++
		if dm.firstErr == nil {
			dm.firstErr = err
		}
	} else {
		dm.delivered++
	}
	dm.mu.Unlock()

	dm.inflight.Done()
}

func (dm *deliveryMonitor) track() {
	dm.inflight.Add(1)
}

// waitInflight espera a que todos los mensajes enviados tengan delivery report.
func (dm *deliveryMonitor) waitInflight(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		dm.inflight.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (dm *deliveryMonitor) result() (delivered int, failed int, firstErr error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.delivered, dm.failed, dm.firstErr
}

func (dm *deliveryMonitor) stop() {
	if dm.cancel != nil {
		dm.cancel()
	}
	dm.wg.Wait()
}

type KafkaSink struct {
	topic    string
	keyField string
	logger   observability.Logger
	producer *kafka.ProducerService
	monitor  *deliveryMonitor
	once     sync.Once
}

func (ks *KafkaSink) Publish(ctx context.Context, event models.Event) error {
	value, key, err := encodeEvent(event, ks.keyField)
	if err != nil {
		return err
	}

	ks.monitor.track()
	if err := ks.producer.ProduceAsync(ctx, ks.topic, key, value, nil); err != nil {
		ks.monitor.record(err)
		return fmt.Errorf("produce to %s: %w", ks.topic, err)
	}

	return nil
}

func (ks *KafkaSink) Flush(ctx context.Context) error {
	for ks.producer.Flush(flushPollMs) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if err := ks.monitor.waitInflight(ctx); err != nil {
		return err
	}

	delivered, failed, firstErr := ks.monitor.result()
	ks.logger.Debug(ctx, "Flush de Kafka completado", "topic", ks.topic,
		"delivered", delivered, "failed", failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d messages to %s failed delivery: %w",
			failed, delivered+failed, ks.topic, firstErr)
	}

	return nil
}

// Close no libera el producer; lo hace el factory al cerrarse.
func (ks *KafkaSink) Close() error {
	return nil
}

func (ks *KafkaSink) shutdown() {
	ks.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := ks.Flush(ctx); err != nil {
			ks.logger.Warn(ctx, "Mensajes pendientes al cerrar el producer", err, "topic", ks.topic)
		}

		ks.monitor.stop()
		ks.producer.Close()
	})
}

func encodeEvent(event models.Event, keyField string) (value []byte, key []byte, err error) {
	value, err = json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("serialize event: %w", err)
	}

	if keyField != "" {
		if s, ok := event.StringField(keyField); ok {
			key = []byte(s)
		} else if v, ok := event[keyField]; ok && v != nil {
			key = []byte(fmt.Sprint(v))
		}
	}

	return value, key, nil
}
