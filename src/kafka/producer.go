package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const queueFullBackoff = 50 * time.Millisecond

type ProducerConfig struct {
	serverConfigs
	*securityConfig

	acks *ACKS

	lingerMs  int
	batchSize int

	retries           int
	deliveryTimeoutMs int
	messageTimeoutMs  int
}

func NewProducerCgfWithSvrCfgs(serverConfigs *serverConfigs,
	securityConfig *securityConfig) (*ProducerConfig, error) {

	if serverConfigs == nil {
		return nil, errors.New("serverConfigs is required")
	}

	acks := ACKsAll
	p := &ProducerConfig{
		serverConfigs:     *serverConfigs,
		securityConfig:    securityConfig,
		acks:              &acks,
		lingerMs:          -1,
		retries:           3,
		deliveryTimeoutMs: 30000,
		messageTimeoutMs:  30000,
	}

	return p, nil
}

func (p *ProducerConfig) WithACKs(acks ACKS) (*ProducerConfig, error) {
	if IsNotValidACKs(acks) {
		return nil, errors.New("invalid acks value")
	}
	p.acks = &acks
	return p, nil
}

func (p *ProducerConfig) WithLingerMs(lingerMs int) *ProducerConfig {
	if lingerMs < 0 {
		return p
	}
	p.lingerMs = lingerMs
	return p
}

func (p *ProducerConfig) WithBatchSize(batchSize int) *ProducerConfig {
	if batchSize <= 0 {
		return p
	}
	p.batchSize = batchSize
	return p
}

func (p *ProducerConfig) WithRetries(retries int) *ProducerConfig {
	if retries < 0 {
		return p
	}
	p.retries = retries
	return p
}

func (p *ProducerConfig) Build() (*kafka.ConfigMap, error) {
	configMap := kafka.ConfigMap{}

	p.serverConfigs.build(&configMap)

	configMap.SetKey("acks", int(*p.acks))
	configMap.SetKey("delivery.timeout.ms", p.deliveryTimeoutMs)
	configMap.SetKey("message.timeout.ms", p.messageTimeoutMs)
	configMap.SetKey("retries", p.retries)

	// -1: se deja el linger.ms por defecto de librdkafka
	if p.lingerMs >= 0 {
		configMap.SetKey("linger.ms", p.lingerMs)
	}

	if p.batchSize > 0 {
		configMap.SetKey("batch.size", p.batchSize)
	}

	if p.securityConfig != nil {
		p.securityConfig.Build(&configMap)
	}

	return &configMap, nil
}

type ProducerService struct {
	Config *ProducerConfig
	*kafka.Producer
	logger          observability.Logger
	DeliveryReports chan kafka.Event
}

func NewProducerService(config *ProducerConfig, logger observability.Logger) (*ProducerService, error) {
	p := &ProducerService{
		Config: config,
		logger: logger,
	}

	cfg, err := config.Build()
	if err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}

	p.Producer = producer
	p.DeliveryReports = producer.Events()

	return p, nil
}

func (s *ProducerService) Close() {
	if s.Producer != nil {
		s.Producer.Close()
	}
}

// ProduceAsync publica un mensaje; el resultado llega por DeliveryReports con el opaque dado.
// Si la cola local está llena espera a que librdkafka la drene.
func (s *ProducerService) ProduceAsync(ctx context.Context,
	topic string, key []byte, value []byte, opaque interface{}) error {

	return s.produce(ctx, newMessage(topic, key, value, opaque))
}

func (s *ProducerService) produce(ctx context.Context, msg *kafka.Message) error {
	for {
		err := s.Produce(msg, nil)
		if err == nil {
			return nil
		}

		var kerr kafka.Error
		if !errors.As(err, &kerr) || kerr.Code() != kafka.ErrQueueFull {
			s.logger.Error(ctx, "Error producing message", err, "topic", *msg.TopicPartition.Topic)
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(queueFullBackoff):
		}
	}
}

func newMessage(topic string, key []byte, value []byte, opaque interface{}) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:    key,
		Value:  value,
		Opaque: opaque,
	}
}
