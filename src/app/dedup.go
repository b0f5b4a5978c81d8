package app

import (
	"context"
	"fmt"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/console"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/generator"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
)

const KindDedup = "dedup"

type DedupOptions struct {
	ConfigPath       string
	SchemaPath       string
	NumRecords       int
	DuplicationRate  float64
	RPS              int
	SkipConfirmation bool
	Cleanup          bool
	PrintRows        int
	Seed             uint64
	DryRunDir        string
}

// RunDedup publica eventos con duplicados en el topic del pipeline y verifica que
// la tabla reciba solo los eventos únicos.
func (d *Demo) RunDedup(ctx context.Context, opts DedupOptions) error {
	startedAt := d.now()

	cfg, err := models.LoadPipelineConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	ctx = d.logger.AddFieldsToContext(ctx, map[string]string{
		"pipeline_id": cfg.PipelineID,
		"kind":        KindDedup,
	})

	schema, err := generator.LoadSchema(opts.SchemaPath)
	if err != nil {
		return err
	}

	topic := cfg.Source.Topics[0]

	genOpts := generator.Options{
		NumRecords: opts.NumRecords,
		RPS:        opts.RPS,
		Seed:       opts.Seed,
	}

	keyField := ""
	if topic.Deduplication.Enabled {
		window, err := models.TimeWindow(topic.Deduplication.TimeWindow)
		if err != nil {
			return fmt.Errorf("topic %s deduplication time_window: %w", topic.Name, err)
		}

		keyField = topic.Deduplication.IDField
		genOpts.Duplication = &generator.DuplicationOptions{
			Ratio:      opts.DuplicationRate,
			KeyField:   keyField,
			TimeWindow: window,
		}
	}

	gen, err := generator.New(schema, genOpts)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	plans := []publishPlan{{topic: topic.Name, keyField: keyField, gen: gen}}

	if opts.DryRunDir != "" {
		return d.dryRun(ctx, opts.DryRunDir, plans)
	}

	wh, err := d.openWarehouse(ctx, cfg.Sink)
	if err != nil {
		d.log(ctx, console.Line{
			Message:   "Error connecting to Clickhouse",
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentClickhouse,
		})
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer wh.Close()

	if err := d.EnsurePipeline(ctx, cfg, wh, EnsureOptions{
		SkipConfirmation: opts.SkipConfirmation,
		Cleanup:          opts.Cleanup,
	}); err != nil {
		return err
	}

	before, err := wh.Count(ctx, cfg.Sink.Table)
	if err != nil {
		return err
	}

	factory, err := d.openSinkFactory(cfg.Source.ConnectionParams)
	if err != nil {
		return fmt.Errorf("create kafka sink: %w", err)
	}
	defer factory.Close()

	stop := d.console.Spinner(fmt.Sprintf("Generating and publishing events to topic %s...", topic.Name))
	stats, err := d.publishAll(ctx, factory, plans)
	stop()
	if err != nil {
		d.log(ctx, console.Line{
			Message:   "Error publishing events to topic " + topic.Name,
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentKafka,
		})
		return err
	}

	d.log(ctx, console.Line{
		Message:   "Generated and published events to topic " + topic.Name,
		Status:    "Success",
		Success:   true,
		Component: console.ComponentKafka,
	})
	d.console.PrintGenStats("Generation stats for topic "+topic.Name, stats...)

	if err := d.waitForSink(ctx, cfg.Sink); err != nil {
		return err
	}

	after, err := wh.Count(ctx, cfg.Sink.Table)
	if err != nil {
		return err
	}

	added := rowDelta(before, after)
	d.log(ctx, console.Line{
		Message:   fmt.Sprintf("Number of new rows to table %s: %d", cfg.Sink.Table, added),
		Success:   true,
		Component: console.ComponentClickhouse,
	})

	if err := d.printSample(ctx, wh, cfg.Sink.Table, opts.PrintRows); err != nil {
		return err
	}

	return d.verify(ctx, verification{
		kind:       KindDedup,
		pipelineID: cfg.PipelineID,
		table:      cfg.Sink.Table,
		startedAt:  startedAt,
		topics:     stats,
		expected:   int64(stats[0].Stats.UniqueEvents()),
		actual:     added,
	})
}
