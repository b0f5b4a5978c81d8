package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type AdminClientConfig struct {
	serverConfigs
	*securityConfig

	requestTimeoutMs int
	retries          int
	retryBackoffMs   int
	socketTimeoutMs  int
}

func NewAdminCgfWithSvrCfgs(serverConfigs *serverConfigs,
	securityConfig *securityConfig) (*AdminClientConfig, error) {

	if serverConfigs == nil {
		return nil, errors.New("serverConfigs is required")
	}

	a := &AdminClientConfig{
		serverConfigs:    *serverConfigs,
		securityConfig:   securityConfig,
		requestTimeoutMs: 30000,
		retries:          3,
		retryBackoffMs:   100,
		socketTimeoutMs:  60000,
	}

	return a, nil
}

func (a *AdminClientConfig) WithRequestTimeoutMs(timeoutMs int) *AdminClientConfig {
	if timeoutMs > 0 {
		a.requestTimeoutMs = timeoutMs
	}
	return a
}

func (a *AdminClientConfig) WithRetries(retries int) *AdminClientConfig {
	if retries >= 0 {
		a.retries = retries
	}
	return a
}

func (a *AdminClientConfig) Build() (*kafka.ConfigMap, error) {
	configMap := kafka.ConfigMap{}

	a.serverConfigs.build(&configMap)

	configMap.SetKey("request.timeout.ms", a.requestTimeoutMs)
	configMap.SetKey("retries", a.retries)
	configMap.SetKey("retry.backoff.ms", a.retryBackoffMs)
	configMap.SetKey("socket.timeout.ms", a.socketTimeoutMs)

	if a.securityConfig != nil {
		a.securityConfig.Build(&configMap)
	}

	return &configMap, nil
}

type AdminService struct {
	client           *kafka.AdminClient
	logger           observability.Logger
	operationTimeout time.Duration
}

func NewAdminService(config *AdminClientConfig, logger observability.Logger) (*AdminService, error) {
	cfg, err := config.Build()
	if err != nil {
		return nil, err
	}

	client, err := kafka.NewAdminClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create admin client: %w", err)
	}

	return &AdminService{
		client:           client,
		logger:           logger,
		operationTimeout: time.Duration(config.requestTimeoutMs) * time.Millisecond,
	}, nil
}

// CreateTopics crea los topics y reporta el resultado de cada uno.
// Los errores por topic no abortan la operación.
func (s *AdminService) CreateTopics(ctx context.Context, topics []*Topic) ([]TopicResult, error) {
	specs := make([]kafka.TopicSpecification, 0, len(topics))
	for _, t := range topics {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid topic %q: %w", t.Name, err)
		}
		specs = append(specs, t.Build())
	}

	if len(specs) == 0 {
		return nil, nil
	}

	results, err := s.client.CreateTopics(ctx, specs, kafka.SetAdminOperationTimeout(s.operationTimeout))
	if err != nil {
		s.logger.Error(ctx, "Error creando topics", err)
		return nil, fmt.Errorf("create topics: %w", err)
	}

	out := classifyTopicResults(results)
	for _, r := range out {
		s.logger.Debug(ctx, "Topic procesado", "topic", r.Topic, "status", string(r.Status))
	}

	return out, nil
}

func (s *AdminService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func classifyTopicResults(results []kafka.TopicResult) []TopicResult {
	out := make([]TopicResult, 0, len(results))

	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError:
			out = append(out, TopicResult{Topic: r.Topic, Status: TopicStatusCreated})
		case kafka.ErrTopicAlreadyExists:
			out = append(out, TopicResult{Topic: r.Topic, Status: TopicStatusAlreadyExists})
		default:
			out = append(out, TopicResult{Topic: r.Topic, Status: TopicStatusFailed, Err: r.Error})
		}
	}

	return out
}
