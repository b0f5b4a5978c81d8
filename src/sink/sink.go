package sink

import (
	"context"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
)

// EventSink es la interfaz que debe implementar un sink para publicar los eventos generados
type EventSink interface {
	Publish(ctx context.Context, event models.Event) error

	// Flush espera a que todo lo publicado quede confirmado en el destino
	Flush(ctx context.Context) error

	Close() error
}

// SinkFactory es la interfaz que debe implementar un factory para crear sinks por topic
type SinkFactory interface {
	CreateSink(topic string, keyField string) (EventSink, error)
	Close() error
}
