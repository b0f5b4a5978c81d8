package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/clickhouse"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
)

// RowInserter es la parte del cliente de ClickHouse que usa el sink.
type RowInserter interface {
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, batchSize int) error
}

// Converter adapta el valor de un campo al tipo de la columna.
type Converter func(v any) (any, error)

// ClickHouseSink inserta los eventos directamente en una tabla, en lotes.
type ClickHouseSink struct {
	inserter   RowInserter
	table      string
	columns    []string
	converters map[string]Converter
	batchSize  int

	mu      sync.Mutex
	pending [][]any
}

func NewClickHouseSink(inserter RowInserter, table string, columns []string,
	converters map[string]Converter, batchSize int) *ClickHouseSink {

	if batchSize <= 0 {
		batchSize = clickhouse.DefaultInsertBatchSize
	}

	return &ClickHouseSink{
		inserter:   inserter,
		table:      table,
		columns:    columns,
		converters: converters,
		batchSize:  batchSize,
		pending:    make([][]any, 0, batchSize),
	}
}

func (s *ClickHouseSink) Publish(ctx context.Context, event models.Event) error {
	row := make([]any, len(s.columns))
	for i, col := range s.columns {
		v, ok := event[col]
		if !ok {
			return fmt.Errorf("event has no field %q for table %s", col, s.table)
		}

		if conv, ok := s.converters[col]; ok {
			converted, err := conv(v)
			if err != nil {
				return fmt.Errorf("convert field %q: %w", col, err)
			}
			v = converted
		}
		row[i] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, row)
	if len(s.pending) >= s.batchSize {
		return s.flushLocked(ctx)
	}

	return nil
}

func (s *ClickHouseSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked(ctx)
}

func (s *ClickHouseSink) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}

	if err := s.inserter.InsertRows(ctx, s.table, s.columns, s.pending, s.batchSize); err != nil {
		return err
	}

	s.pending = make([][]any, 0, s.batchSize)
	return nil
}

func (s *ClickHouseSink) Close() error {
	return nil
}

// DateTimeConverter parsea fechas en el layout dado (p. ej. time.DateTime).
func DateTimeConverter(layout string) Converter {
	return func(v any) (any, error) {
		text, ok := v.(string)
		if !ok {
			return v, nil
		}
		t, err := time.Parse(layout, text)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}
