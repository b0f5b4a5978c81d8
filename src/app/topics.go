package app

import (
	"context"
	"fmt"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/console"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/kafka"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
)

// createTopics crea los topics y muestra el resultado de cada uno. Un topic que falla
// se informa pero no corta la demo.
func (d *Demo) createTopics(ctx context.Context, params models.ConnectionParams, names []string) ([]kafka.TopicResult, error) {
	admin, err := d.openTopicAdmin(params)
	if err != nil {
		d.log(ctx, console.Line{
			Message:   "Error connecting to Kafka",
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentKafka,
		})
		return nil, fmt.Errorf("create kafka admin: %w", err)
	}
	defer admin.Close()

	topics := make([]*kafka.Topic, 0, len(names))
	for _, name := range names {
		topics = append(topics, kafka.NewTopic(name, d.cfg.Kafka.Partitions, d.cfg.Kafka.ReplicationFactor))
	}

	results, err := admin.CreateTopics(ctx, topics)
	if err != nil {
		d.log(ctx, console.Line{
			Message:   "Error creating topics",
			Status:    err.Error(),
			Failure:   true,
			Component: console.ComponentKafka,
		})
		return nil, err
	}

	for _, r := range results {
		d.metrics.IncTopicResult(r.Topic, string(r.Status))

		switch r.Status {
		case kafka.TopicStatusCreated:
			d.log(ctx, console.Line{Message: "Topic " + r.Topic, Status: "Created", Success: true, Component: console.ComponentKafka})
		case kafka.TopicStatusAlreadyExists:
			d.log(ctx, console.Line{Message: "Topic " + r.Topic, Status: "Already exists", Success: true, Component: console.ComponentKafka})
		default:
			d.log(ctx, console.Line{Message: "Error creating topic " + r.Topic, Status: errString(r.Err), Failure: true, Component: console.ComponentKafka})
		}
	}

	return results, nil
}

// RunTopics crea todos los topics de una configuración de pipeline.
func (d *Demo) RunTopics(ctx context.Context, configPath string) error {
	cfg, err := models.LoadPipelineConfig(configPath)
	if err != nil {
		return err
	}

	results, err := d.createTopics(ctx, cfg.Source.ConnectionParams, topicNames(cfg))
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.Ok() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d topics", ErrTopicCreation, failed, len(results))
	}

	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
