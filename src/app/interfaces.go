package app

import (
	"context"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/history"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/kafka"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
)

// PipelineAPI es la parte de la API de GlassFlow que usa la demo.
type PipelineAPI interface {
	Health(ctx context.Context) error
	RunningPipeline(ctx context.Context) (string, error)
	CreatePipeline(ctx context.Context, raw []byte) error
	TerminatePipeline(ctx context.Context, id string) error
	WaitForStatus(ctx context.Context, id string, statuses ...string) (string, error)
	DeletePipeline(ctx context.Context, id string) error
}

// Warehouse agrupa las consultas a la tabla destino en ClickHouse.
type Warehouse interface {
	CreateTableIfNotExists(ctx context.Context, cfg *models.PipelineConfig) (bool, error)
	CreateOrdersTable(ctx context.Context, table string) error
	Count(ctx context.Context, table string) (uint64, error)
	CountDistinct(ctx context.Context, table string, column string) (uint64, error)
	Truncate(ctx context.Context, table string) error
	SampleRows(ctx context.Context, table string, n int) ([]string, [][]string, error)
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, batchSize int) error
	Close() error
}

type TopicAdmin interface {
	CreateTopics(ctx context.Context, topics []*kafka.Topic) ([]kafka.TopicResult, error)
	Close()
}

type RunHistory interface {
	Record(ctx context.Context, run history.Run) (int64, error)
	Latest(ctx context.Context, n int) ([]history.Run, error)
	Close() error
}
