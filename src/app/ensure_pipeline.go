package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/console"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/glassflow"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
)

type EnsureOptions struct {
	SkipConfirmation bool
	Cleanup          bool
}

// EnsurePipeline deja corriendo el pipeline de la configuración. Si hay otro pipeline
// activo lo reemplaza (previa confirmación) y crea tabla, topics y pipeline.
func (d *Demo) EnsurePipeline(ctx context.Context, cfg *models.PipelineConfig, wh Warehouse, opts EnsureOptions) error {
	if err := d.pipelines.Health(ctx); err != nil {
		if errors.Is(err, glassflow.ErrNotReachable) {
			return d.glassflowDown(ctx, err)
		}
		// /healthz respondió con error: la API puede seguir sirviendo pipelines
		d.logger.Warn(ctx, "Health check de GlassFlow con error", err)
	}

	running, err := d.pipelines.RunningPipeline(ctx)
	switch {
	case errors.Is(err, glassflow.ErrNotReachable):
		return d.glassflowDown(ctx, err)
	case errors.Is(err, glassflow.ErrPipelineNotFound):
		running = ""
	case err != nil:
		d.log(ctx, console.Line{
			Message:   "Error checking if pipeline exists",
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentGlassFlow,
		})
		return fmt.Errorf("check running pipeline: %w", err)
	}

	if running == cfg.PipelineID {
		d.log(ctx, console.Line{
			Message:   "Pipeline " + cfg.PipelineID,
			Status:    "Already exists",
			Success:   true,
			Component: console.ComponentGlassFlow,
		})

		if opts.Cleanup {
			return d.truncate(ctx, wh, cfg.Sink.Table)
		}
		return nil
	}

	if running != "" {
		if err := d.replacePipeline(ctx, running, cfg.PipelineID, opts.SkipConfirmation); err != nil {
			return err
		}
	}

	if err := d.ensureTable(ctx, cfg, wh); err != nil {
		return err
	}

	if _, err := d.createTopics(ctx, cfg.Source.ConnectionParams, topicNames(cfg)); err != nil {
		return err
	}

	return d.createPipeline(ctx, cfg)
}

func (d *Demo) glassflowDown(ctx context.Context, err error) error {
	d.log(ctx, console.Line{
		Message:   "Looks like GlassFlow is not running locally!",
		Failure:   true,
		Component: console.ComponentGlassFlow,
	})
	d.console.Println("\nRun the following command to start it:\n  > `docker compose up -d`")
	d.console.Println()
	return fmt.Errorf("%w: %w", ErrGlassFlowDown, err)
}

func (d *Demo) replacePipeline(ctx context.Context, running string, wanted string, skipConfirmation bool) error {
	if !skipConfirmation {
		question := fmt.Sprintf("⚠\t[GlassFlow] Pipeline %s is running. "+
			"Do you want to delete it and create a new pipeline with ID %s?", running, wanted)

		ok, err := d.console.AskYesNo(question, true)
		if err != nil {
			return err
		}
		if !ok {
			d.log(ctx, console.Line{
				Message:   "Exited! Delete current pipeline or update config to send events to existing pipeline",
				Failure:   true,
				Component: console.ComponentGlassFlow,
			})
			return ErrDeclined
		}
	}

	d.logger.Info(ctx, "Deteniendo pipeline activo", "pipeline_id", running)

	if err := d.pipelines.TerminatePipeline(ctx, running); err != nil && !errors.Is(err, glassflow.ErrPipelineNotFound) {
		d.log(ctx, console.Line{
			Message:   "Error terminating pipeline " + running,
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentGlassFlow,
		})
		return fmt.Errorf("terminate pipeline %s: %w", running, err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, d.cfg.GlassFlow.StopTimeout())
	defer cancel()

	status, err := d.pipelines.WaitForStatus(stopCtx, running, glassflow.StatusStopped, glassflow.StatusFailed)
	if err != nil {
		return fmt.Errorf("wait for pipeline %s to stop: %w", running, err)
	}
	d.logger.Debug(ctx, "Pipeline detenido", "pipeline_id", running, "status", status)

	if err := d.pipelines.DeletePipeline(ctx, running); err != nil && !errors.Is(err, glassflow.ErrPipelineNotFound) {
		d.log(ctx, console.Line{
			Message:   "Error deleting pipeline " + running,
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentGlassFlow,
		})
		return fmt.Errorf("delete pipeline %s: %w", running, err)
	}

	d.log(ctx, console.Line{
		Message:   "Delete pipeline " + running,
		Status:    "Success",
		Success:   true,
		Component: console.ComponentGlassFlow,
	})

	return nil
}

func (d *Demo) createPipeline(ctx context.Context, cfg *models.PipelineConfig) error {
	err := d.pipelines.CreatePipeline(ctx, cfg.Raw)
	switch {
	case errors.Is(err, glassflow.ErrPipelineAlreadyExists):
		d.log(ctx, console.Line{
			Message:   "Pipeline " + cfg.PipelineID,
			Status:    "Already exists",
			Failure:   true,
			Component: console.ComponentGlassFlow,
		})
		return nil
	case err != nil:
		d.log(ctx, console.Line{
			Message:   "Error creating pipeline " + cfg.PipelineID,
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentGlassFlow,
		})
		return fmt.Errorf("create pipeline %s: %w", cfg.PipelineID, err)
	}

	if err := d.wait(ctx, "Waiting for pipeline to start...", d.cfg.GlassFlow.StartupWait()); err != nil {
		return err
	}

	d.log(ctx, console.Line{
		Message:   "Pipeline " + cfg.PipelineID,
		Status:    "Created",
		Success:   true,
		Component: console.ComponentGlassFlow,
	})

	return nil
}

func (d *Demo) ensureTable(ctx context.Context, cfg *models.PipelineConfig, wh Warehouse) error {
	created, err := wh.CreateTableIfNotExists(ctx, cfg)
	if err != nil {
		d.log(ctx, console.Line{
			Message:   "Error creating sink " + cfg.Sink.Table,
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentClickhouse,
		})
		return fmt.Errorf("create sink table %s: %w", cfg.Sink.Table, err)
	}

	status := "Already exists"
	if created {
		status = "Created"
	}

	d.log(ctx, console.Line{
		Message:   "Sink " + cfg.Sink.Table,
		Status:    status,
		Success:   true,
		Component: console.ComponentClickhouse,
	})

	return nil
}

func (d *Demo) truncate(ctx context.Context, wh Warehouse, table string) error {
	if err := wh.Truncate(ctx, table); err != nil {
		return fmt.Errorf("truncate table %s: %w", table, err)
	}

	d.log(ctx, console.Line{
		Message:   "Truncate table " + table,
		Status:    "Success",
		Success:   true,
		Component: console.ComponentClickhouse,
	})

	return nil
}

func topicNames(cfg *models.PipelineConfig) []string {
	names := make([]string, 0, len(cfg.Source.Topics))
	for _, t := range cfg.Source.Topics {
		names = append(names, t.Name)
	}
	return names
}
