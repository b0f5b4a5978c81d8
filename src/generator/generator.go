package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"golang.org/x/time/rate"
)

const duplicationBufferSize = 10000

// Publisher recibe los eventos generados. Lo implementan los sinks.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Flush(ctx context.Context) error
}

type DuplicationOptions struct {
	Ratio      float64
	KeyField   string
	TimeWindow time.Duration
}

// KeyOverride reemplaza un campo de cada evento por las claves dadas, en ciclo.
type KeyOverride struct {
	Field string
	Keys  []string
}

type Options struct {
	NumRecords  int
	RPS         int
	Seed        uint64
	Duplication *DuplicationOptions
	KeyOverride *KeyOverride
	Now         func() time.Time
}

type Stats struct {
	NumRecords       int
	TotalGenerated   int
	TotalDuplicates  int
	DuplicationRatio float64
	TimeTakenMs      int64
	Duplication      bool
}

func (s *Stats) UniqueEvents() int {
	return s.TotalGenerated
}

type Generator struct {
	schema  *Schema
	opts    Options
	rt      *runtime
	limiter *rate.Limiter
	window  []windowEntry
	keyIdx  int
}

type windowEntry struct {
	event models.Event
	at    time.Time
}

func New(schema *Schema, opts Options) (*Generator, error) {
	if schema == nil {
		return nil, errors.New("schema is required")
	}
	if opts.NumRecords < 0 {
		return nil, fmt.Errorf("num_records must be >= 0, got %d", opts.NumRecords)
	}

	if d := opts.Duplication; d != nil {
		if d.Ratio < 0 || d.Ratio > 1 {
			return nil, fmt.Errorf("duplication ratio must be between 0 and 1, got %v", d.Ratio)
		}
		if !schema.HasField(d.KeyField) {
			return nil, fmt.Errorf("duplication key field %q is not in the schema (fields: %s)",
				d.KeyField, strings.Join(schema.FieldNames(), ", "))
		}
	}

	if k := opts.KeyOverride; k != nil && len(k.Keys) == 0 {
		return nil, fmt.Errorf("key override for %q needs at least one key", k.Field)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}

	g := &Generator{
		schema: schema,
		opts:   opts,
		rt:     newRuntime(opts.Seed, opts.Now),
	}

	if opts.RPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RPS), max(1, opts.RPS/10))
	}

	return g, nil
}

// Run genera NumRecords eventos y los publica. Los duplicados reutilizan un evento
// reciente de la ventana; el primer evento nunca es duplicado.
func (g *Generator) Run(ctx context.Context, publisher Publisher) (*Stats, error) {
	start := time.Now()
	stats := &Stats{
		NumRecords:  g.opts.NumRecords,
		Duplication: g.opts.Duplication != nil,
	}

	for i := 0; i < g.opts.NumRecords; i++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return stats, fmt.Errorf("rate limiter: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return stats, err
		}

		event, duplicate := g.next()
		if err := publisher.Publish(ctx, event); err != nil {
			return stats, fmt.Errorf("publish event %d: %w", i, err)
		}

		if duplicate {
			stats.TotalDuplicates++
		} else {
			stats.TotalGenerated++
		}
	}

	if err := publisher.Flush(ctx); err != nil {
		return stats, fmt.Errorf("flush: %w", err)
	}

	if stats.NumRecords > 0 {
		stats.DuplicationRatio = float64(stats.TotalDuplicates) / float64(stats.NumRecords)
	}
	stats.TimeTakenMs = time.Since(start).Milliseconds()

	return stats, nil
}

func (g *Generator) next() (models.Event, bool) {
	if d := g.opts.Duplication; d != nil {
		now := g.opts.Now()
		g.evict(now, d.TimeWindow)

		if len(g.window) > 0 && g.rt.rng.Float64() < d.Ratio {
			picked := g.window[g.rt.rng.IntN(len(g.window))]
			return picked.event.Clone(), true
		}

		event := g.generate()
		g.remember(event, now)
		return event, false
	}

	return g.generate(), false
}

func (g *Generator) generate() models.Event {
	event := make(models.Event, len(g.schema.Fields))
	for _, f := range g.schema.Fields {
		event[f.Name] = f.value(g.rt)
	}

	if k := g.opts.KeyOverride; k != nil {
		event[k.Field] = k.Keys[g.keyIdx%len(k.Keys)]
		g.keyIdx++
	}

	return event
}

func (g *Generator) remember(event models.Event, now time.Time) {
	if len(g.window) >= duplicationBufferSize {
		g.window = g.window[1:]
	}
	g.window = append(g.window, windowEntry{event: event, at: now})
}

func (g *Generator) evict(now time.Time, window time.Duration) {
	if window <= 0 {
		return
	}

	i := 0
	for i < len(g.window) && now.Sub(g.window[i].at) > window {
		i++
	}
	g.window = g.window[i:]
}

// GenerateKeys crea n claves uuid para el demo de join.
func GenerateKeys(n int, seed uint64) []string {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	rt := newRuntime(seed, time.Now)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = rt.uuid()
	}
	return keys
}
