package app

import (
	"context"
	"fmt"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/console"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/generator"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/history"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/sink"
)

// publishPlan es un generador listo para publicar en un topic.
type publishPlan struct {
	topic    string
	keyField string
	gen      *generator.Generator
}

func (d *Demo) publishAll(ctx context.Context, factory sink.SinkFactory, plans []publishPlan) ([]console.TopicStats, error) {
	out := make([]console.TopicStats, 0, len(plans))

	for _, p := range plans {
		s, err := factory.CreateSink(p.topic, p.keyField)
		if err != nil {
			return out, fmt.Errorf("create sink for topic %s: %w", p.topic, err)
		}

		d.logger.Debug(ctx, "Publicando eventos", "topic", p.topic, "key_field", p.keyField)

		stats, err := p.gen.Run(ctx, s)
		if err != nil {
			return out, fmt.Errorf("publish events to topic %s: %w", p.topic, err)
		}

		d.metrics.AddPublished(p.topic, stats.NumRecords, stats.TotalDuplicates)
		out = append(out, console.TopicStats{Topic: p.topic, Stats: stats})
	}

	return out, nil
}

// dryRun escribe los eventos en <dir>/<topic>.json en lugar de Kafka.
func (d *Demo) dryRun(ctx context.Context, dir string, plans []publishPlan) error {
	factory, err := sink.NewFileSinkFactory(dir, d.logger)
	if err != nil {
		return err
	}
	defer factory.Close()

	stats, err := d.publishAll(ctx, factory, plans)
	if err != nil {
		return err
	}

	for _, s := range stats {
		d.log(ctx, console.Line{
			Message:   fmt.Sprintf("Dry run: %d events for topic %s written to %s", s.Stats.NumRecords, s.Topic, factory.PathFor(s.Topic)),
			Status:    "Success",
			Success:   true,
			Component: console.ComponentKafka,
		})
	}

	d.console.PrintGenStats("Generation stats (dry run)", stats...)

	return nil
}

// waitForSink espera max_delay_time del sink más un margen, para que el buffer
// del pipeline llegue a ClickHouse.
func (d *Demo) waitForSink(ctx context.Context, sinkCfg models.SinkConfig) error {
	seconds, err := models.TimeWindowToSeconds(sinkCfg.MaxDelayTime)
	if err != nil {
		return fmt.Errorf("sink max_delay_time: %w", err)
	}

	message := fmt.Sprintf("Waiting %d seconds (max_delay_time) for sink to flush buffer before querying Clickhouse...", seconds)

	return d.wait(ctx, message, time.Duration(seconds)*time.Second+flushGrace)
}

func (d *Demo) printSample(ctx context.Context, wh Warehouse, table string, n int) error {
	if n <= 0 {
		return nil
	}

	columns, rows, err := wh.SampleRows(ctx, table, n)
	if err != nil {
		return fmt.Errorf("sample rows from %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil
	}

	d.console.PrintRecords("Records from table "+table, columns, rows)
	return nil
}

// verification es el resultado de una corrida dedup o join antes de registrarla.
type verification struct {
	kind       string
	pipelineID string
	table      string
	startedAt  time.Time
	topics     []console.TopicStats
	expected   int64
	actual     int64
}

// verify compara filas agregadas contra las esperadas, actualiza métricas e historial.
// Una diferencia devuelve ErrVerificationFailed.
func (d *Demo) verify(ctx context.Context, v verification) error {
	passed := v.expected == v.actual

	if passed {
		d.log(ctx, console.Line{
			Message:   fmt.Sprintf("Expected %d records, and got %d records", v.expected, v.actual),
			Status:    "Success",
			Success:   true,
			Component: console.ComponentClickhouse,
		})
	} else {
		d.log(ctx, console.Line{
			Message:   fmt.Sprintf("Expected %d records, but got %d records", v.expected, v.actual),
			Status:    "Failure",
			Failure:   true,
			Component: console.ComponentClickhouse,
		})
	}

	duration := d.now().Sub(v.startedAt)

	d.metrics.SetRowsAdded(v.table, v.actual)
	d.metrics.SetVerification(v.kind, passed)
	d.metrics.ObserveRun(v.kind, duration.Seconds())

	d.recordRun(ctx, history.Run{
		Kind:       v.kind,
		PipelineID: v.pipelineID,
		StartedAt:  v.startedAt,
		Topics:     topicCounts(v.topics),
		Expected:   v.expected,
		Actual:     v.actual,
		Passed:     passed,
		DurationMs: duration.Milliseconds(),
	})

	d.pushMetrics(ctx)

	if !passed {
		return fmt.Errorf("%w: expected %d records, got %d", ErrVerificationFailed, v.expected, v.actual)
	}

	return nil
}

func (d *Demo) recordRun(ctx context.Context, run history.Run) {
	if d.history == nil {
		return
	}

	id, err := d.history.Record(ctx, run)
	if err != nil {
		d.logger.Warn(ctx, "No se pudo registrar la ejecución", err, "kind", run.Kind)
		return
	}

	d.logger.Debug(ctx, "Ejecución registrada", "id", id, "kind", run.Kind, "passed", run.Passed)
}

func (d *Demo) pushMetrics(ctx context.Context) {
	if d.metricsService == nil {
		return
	}

	if err := d.metricsService.Push(d.cfg.Metrics.PushGatewayURL); err != nil {
		d.logger.Warn(ctx, "No se pudieron enviar las métricas", err)
	}
}

func topicCounts(stats []console.TopicStats) []history.TopicCount {
	out := make([]history.TopicCount, 0, len(stats))
	for _, s := range stats {
		out = append(out, history.TopicCount{
			Topic:      s.Topic,
			Published:  s.Stats.NumRecords,
			Duplicates: s.Stats.TotalDuplicates,
		})
	}
	return out
}

// rowDelta es la diferencia de filas; negativa si la tabla se vació entre conteos.
func rowDelta(before, after uint64) int64 {
	return int64(after) - int64(before)
}

// derivedSeed da semillas distintas por generador sin perder el determinismo de --seed.
func derivedSeed(seed uint64, offset uint64) uint64 {
	if seed == 0 {
		return 0
	}
	return seed + offset
}
