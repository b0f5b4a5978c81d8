package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/config"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/console"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/history"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/kafka"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/sink"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func init() {
	console.DisableColor()
}

type fakePipelines struct {
	healthErr  error
	running    string
	runningErr error
	createErr  error
	calls      []string
}

func (f *fakePipelines) Health(context.Context) error {
	f.calls = append(f.calls, "health")
	return f.healthErr
}

func (f *fakePipelines) RunningPipeline(context.Context) (string, error) {
	f.calls = append(f.calls, "running")
	return f.running, f.runningErr
}

func (f *fakePipelines) CreatePipeline(_ context.Context, raw []byte) error {
	f.calls = append(f.calls, "create")
	return f.createErr
}

func (f *fakePipelines) TerminatePipeline(_ context.Context, id string) error {
	f.calls = append(f.calls, "terminate:"+id)
	return nil
}

func (f *fakePipelines) WaitForStatus(_ context.Context, id string, statuses ...string) (string, error) {
	f.calls = append(f.calls, "wait:"+id)
	return statuses[0], nil
}

func (f *fakePipelines) DeletePipeline(_ context.Context, id string) error {
	f.calls = append(f.calls, "delete:"+id)
	return nil
}

type fakeWarehouse struct {
	tableCreated bool
	truncated    []string
	ordersTables []string
	inserted     [][]any
	countCalls   int
	countFn      func(call int) uint64
	distinctFn   func(table, column string) uint64
	sampleCols   []string
	sampleRows   [][]string
	closed       bool
}

func (f *fakeWarehouse) CreateTableIfNotExists(context.Context, *models.PipelineConfig) (bool, error) {
	return f.tableCreated, nil
}

func (f *fakeWarehouse) CreateOrdersTable(_ context.Context, table string) error {
	f.ordersTables = append(f.ordersTables, table)
	return nil
}

func (f *fakeWarehouse) Count(context.Context, string) (uint64, error) {
	call := f.countCalls
	f.countCalls++
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(call), nil
}

func (f *fakeWarehouse) CountDistinct(_ context.Context, table string, column string) (uint64, error) {
	if f.distinctFn == nil {
		return 0, nil
	}
	return f.distinctFn(table, column), nil
}

func (f *fakeWarehouse) Truncate(_ context.Context, table string) error {
	f.truncated = append(f.truncated, table)
	return nil
}

func (f *fakeWarehouse) SampleRows(context.Context, string, int) ([]string, [][]string, error) {
	return f.sampleCols, f.sampleRows, nil
}

func (f *fakeWarehouse) InsertRows(_ context.Context, _ string, _ []string, rows [][]any, _ int) error {
	f.inserted = append(f.inserted, rows...)
	return nil
}

func (f *fakeWarehouse) Close() error {
	f.closed = true
	return nil
}

type fakeAdmin struct {
	created []string
	failed  map[string]error
}

func (f *fakeAdmin) CreateTopics(_ context.Context, topics []*kafka.Topic) ([]kafka.TopicResult, error) {
	out := make([]kafka.TopicResult, 0, len(topics))
	for _, t := range topics {
		if err, ok := f.failed[t.Name]; ok {
			out = append(out, kafka.TopicResult{Topic: t.Name, Status: kafka.TopicStatusFailed, Err: err})
			continue
		}
		f.created = append(f.created, t.Name)
		out = append(out, kafka.TopicResult{Topic: t.Name, Status: kafka.TopicStatusCreated})
	}
	return out, nil
}

func (f *fakeAdmin) Close() {}

// memSinkFactory guarda en memoria lo publicado por topic, en orden.
type memSinkFactory struct {
	mu     sync.Mutex
	order  []string
	events map[string][]models.Event
}

func newMemSinkFactory() *memSinkFactory {
	return &memSinkFactory{events: make(map[string][]models.Event)}
}

func (m *memSinkFactory) CreateSink(topic string, _ string) (sink.EventSink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, topic)
	return &memSink{factory: m, topic: topic}, nil
}

func (m *memSinkFactory) Close() error { return nil }

func (m *memSinkFactory) published(topic string) []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[topic]
}

func (m *memSinkFactory) distinct(topic, field string) int {
	seen := map[any]bool{}
	for _, e := range m.published(topic) {
		seen[e[field]] = true
	}
	return len(seen)
}

type memSink struct {
	factory *memSinkFactory
	topic   string
}

func (s *memSink) Publish(_ context.Context, event models.Event) error {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	s.factory.events[s.topic] = append(s.factory.events[s.topic], event)
	return nil
}

func (s *memSink) Flush(context.Context) error { return nil }

func (s *memSink) Close() error { return nil }

type fakeHistory struct {
	runs []history.Run
}

func (f *fakeHistory) Record(_ context.Context, run history.Run) (int64, error) {
	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, run)
	return run.ID, nil
}

func (f *fakeHistory) Latest(_ context.Context, n int) ([]history.Run, error) {
	out := make([]history.Run, 0, n)
	for i := len(f.runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.runs[i])
	}
	return out, nil
}

func (f *fakeHistory) Close() error { return nil }

// fieldsLogger guarda los campos que se agregan al contexto de log.
type fieldsLogger struct {
	*observability.NopLogger
	fields []map[string]string
}

func (l *fieldsLogger) AddFieldsToContext(ctx context.Context, fields map[string]string) context.Context {
	l.fields = append(l.fields, fields)
	return ctx
}

type testEnv struct {
	out       *bytes.Buffer
	pipelines *fakePipelines
	warehouse *fakeWarehouse
	admin     *fakeAdmin
	factory   *memSinkFactory
	history   *fakeHistory
	sleeps    []time.Duration
}

func newTestDemo(t *testing.T, input string) (*Demo, *testEnv) {
	t.Helper()

	env := &testEnv{
		out:       &bytes.Buffer{},
		pipelines: &fakePipelines{},
		warehouse: &fakeWarehouse{},
		admin:     &fakeAdmin{},
		factory:   newMemSinkFactory(),
		history:   &fakeHistory{},
	}

	cfg := config.Default()

	d := &Demo{
		cfg:       cfg,
		logger:    observability.NewNopLogger(),
		console:   console.New(env.out, strings.NewReader(input)),
		pipelines: env.pipelines,
		metrics:   observability.NewDemoMetrics(prometheus.NewRegistry()),
		history:   env.history,
		openWarehouse: func(context.Context, models.SinkConfig) (Warehouse, error) {
			return env.warehouse, nil
		},
		openTopicAdmin: func(models.ConnectionParams) (TopicAdmin, error) {
			return env.admin, nil
		},
		openSinkFactory: func(models.ConnectionParams) (sink.SinkFactory, error) {
			return env.factory, nil
		},
		sleep: func(_ context.Context, d time.Duration) error {
			env.sleeps = append(env.sleeps, d)
			return nil
		},
		now: time.Now,
	}

	return d, env
}

const testDedupConfig = `{
  "pipeline_id": "dedup-demo",
  "source": {
    "type": "kafka",
    "connection_params": {"brokers": ["kafka:9094"], "protocol": "PLAINTEXT", "mechanism": "NO_AUTH"},
    "topics": [{
      "name": "users",
      "deduplication": {"enabled": true, "id_field": "event_id", "id_field_type": "string", "time_window": "1h"}
    }]
  },
  "sink": {
    "type": "clickhouse",
    "host": "clickhouse",
    "database": "default",
    "username": "default",
    "password": "c2VjcmV0",
    "table": "users_dedup",
    "max_delay_time": "1s",
    "table_mapping": [
      {"source_id": "users", "field_name": "event_id", "column_name": "event_id", "column_type": "String"}
    ]
  }
}`

const testJoinConfig = `{
  "pipeline_id": "join-demo",
  "source": {
    "type": "kafka",
    "connection_params": {"brokers": ["kafka:9092"]},
    "topics": [{"name": "orders"}, {"name": "users"}]
  },
  "join": {
    "enabled": true,
    "sources": [
      {"source_id": "orders", "join_key": "user_id", "orientation": "left"},
      {"source_id": "users", "join_key": "user_id", "orientation": "right"}
    ]
  },
  "sink": {"type": "clickhouse", "host": "clickhouse", "table": "orders_enriched", "max_delay_time": "5s"}
}`

const testUserSchema = `{"event_id": "$uuid", "user_id": "$uuid", "name": "$name", "created_at": "$datetime"}`

const testOrderSchema = `{"order_id": "$uuid", "user_id": "$uuid", "quantity": "$intrange(1, 10)", "price": "$price(1, 100)"}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func mustPipelineConfig(t *testing.T, raw string) *models.PipelineConfig {
	t.Helper()
	cfg, err := models.ParsePipelineConfig([]byte(raw))
	require.NoError(t, err)
	return cfg
}

var errBroker = errors.New("broker: invalid replication factor")
