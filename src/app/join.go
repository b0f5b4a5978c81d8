package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/console"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/generator"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
)

const KindJoin = "join"

type JoinOptions struct {
	ConfigPath       string
	LeftSchemaPath   string
	RightSchemaPath  string
	LeftNumRecords   int
	RightNumRecords  int
	RPS              int
	SkipConfirmation bool
	Cleanup          bool
	PrintRows        int
	Seed             uint64
	DryRunDir        string
}

// RunJoin publica primero los eventos right y luego los left, compartiendo claves de
// join, y verifica que la tabla reciba una fila por evento left.
func (d *Demo) RunJoin(ctx context.Context, opts JoinOptions) error {
	startedAt := d.now()

	if opts.RightNumRecords <= 0 {
		return errors.New("right-num-records must be greater than 0")
	}

	cfg, err := models.LoadPipelineConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	ctx = d.logger.AddFieldsToContext(ctx, map[string]string{
		"pipeline_id": cfg.PipelineID,
		"kind":        KindJoin,
	})

	left, right, err := cfg.JoinSides()
	if err != nil {
		return fmt.Errorf("join config: %w", err)
	}

	leftSchema, err := generator.LoadSchema(opts.LeftSchemaPath)
	if err != nil {
		return err
	}
	rightSchema, err := generator.LoadSchema(opts.RightSchemaPath)
	if err != nil {
		return err
	}

	keys := generator.GenerateKeys(opts.RightNumRecords, derivedSeed(opts.Seed, 2))

	rightGen, err := generator.New(rightSchema, generator.Options{
		NumRecords:  opts.RightNumRecords,
		RPS:         opts.RPS,
		Seed:        opts.Seed,
		KeyOverride: &generator.KeyOverride{Field: right.JoinKey, Keys: keys},
	})
	if err != nil {
		return fmt.Errorf("create right generator: %w", err)
	}

	leftGen, err := generator.New(leftSchema, generator.Options{
		NumRecords:  opts.LeftNumRecords,
		RPS:         opts.RPS,
		Seed:        derivedSeed(opts.Seed, 1),
		KeyOverride: &generator.KeyOverride{Field: left.JoinKey, Keys: keys},
	})
	if err != nil {
		return fmt.Errorf("create left generator: %w", err)
	}

	// right primero: cada evento left debe encontrar su pareja ya publicada
	plans := []publishPlan{
		{topic: right.Name, keyField: right.JoinKey, gen: rightGen},
		{topic: left.Name, keyField: left.JoinKey, gen: leftGen},
	}

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

	stop := d.console.Spinner(fmt.Sprintf("Generating and publishing left (%s) and right (%s) events to topics...",
		left.Name, right.Name))
	stats, err := d.publishAll(ctx, factory, plans)
	stop()
	if err != nil {
		d.log(ctx, console.Line{
			Message:   "Error publishing join events",
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentKafka,
		})
		return err
	}

	rightStats, leftStats := stats[0], stats[1]

	d.log(ctx, console.Line{
		Message:   "Generated and published left events to topic " + left.Name,
		Status:    "Success",
		Success:   true,
		Component: console.ComponentKafka,
	})
	d.log(ctx, console.Line{
		Message:   "Generated and published right events to topic " + right.Name,
		Status:    "Success",
		Success:   true,
		Component: console.ComponentKafka,
	})
	d.console.PrintGenStats("Generation stats", leftStats, rightStats)

	if err := d.waitForSink(ctx, cfg.Sink); err != nil {
		return err
	}

	after, err := wh.Count(ctx, cfg.Sink.Table)
	if err != nil {
		return err
	}

	if err := d.printSample(ctx, wh, cfg.Sink.Table, opts.PrintRows); err != nil {
		return err
	}

	return d.verify(ctx, verification{
		kind:       KindJoin,
		pipelineID: cfg.PipelineID,
		table:      cfg.Sink.Table,
		startedAt:  startedAt,
		topics:     []console.TopicStats{leftStats, rightStats},
		expected:   int64(opts.LeftNumRecords),
		actual:     rowDelta(before, after),
	})
}
