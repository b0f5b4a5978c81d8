package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
)

// FileSinkFactory escribe los eventos de cada topic en <outputDir>/<topic>.json (NDJSON).
// Se usa en --dry-run en lugar de Kafka.
type FileSinkFactory struct {
	outputDir string
	logger    observability.Logger
	mu        sync.Mutex
	sinks     map[string]*FileSink
}

func NewFileSinkFactory(outputDir string, logger observability.Logger) (*FileSinkFactory, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}

	return &FileSinkFactory{
		outputDir: outputDir,
		logger:    logger,
		sinks:     make(map[string]*FileSink),
	}, nil
}

func (fsf *FileSinkFactory) CreateSink(topic string, _ string) (EventSink, error) {
	fsf.mu.Lock()
	defer fsf.mu.Unlock()

	if s, exists := fsf.sinks[topic]; exists {
		return s, nil
	}

	path := fsf.PathFor(topic)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	fsf.logger.Debug(context.Background(), "Archivo de salida abierto", "topic", topic, "path", path)

	s := &FileSink{
		file:   file,
		writer: bufio.NewWriter(file),
	}
	fsf.sinks[topic] = s

	return s, nil
}

func (fsf *FileSinkFactory) PathFor(topic string) string {
	name := strings.NewReplacer("/", "_", ".", "_").Replace(topic)
	return filepath.Join(fsf.outputDir, name+".json")
}

func (fsf *FileSinkFactory) Close() error {
	fsf.mu.Lock()
	defer fsf.mu.Unlock()

	var errs []error
	for topic, s := range fsf.sinks {
		errs = append(errs, s.Close())
		delete(fsf.sinks, topic)
	}

	return errors.Join(errs...)
}

type FileSink struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	closed bool
}

func (fs *FileSink) Publish(_ context.Context, event models.Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return errors.New("file sink is closed")
	}

	if _, err := fs.writer.Write(jsonData); err != nil {
		return fmt.Errorf("write to file: %w", err)
	}

	if err := fs.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	return nil
}

func (fs *FileSink) Flush(context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}

	if err := fs.writer.Flush(); err != nil {
		return fmt.Errorf("flush file: %w", err)
	}
	return nil
}

func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	if err := fs.writer.Flush(); err != nil {
		fs.file.Close()
		return fmt.Errorf("flush file: %w", err)
	}
	return fs.file.Close()
}
