package generator

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	events  []models.Event
	flushed bool
	failAt  int
}

func (c *collector) Publish(_ context.Context, e models.Event) error {
	if c.failAt > 0 && len(c.events)+1 == c.failAt {
		return errors.New("boom")
	}
	c.events = append(c.events, e)
	return nil
}

func (c *collector) Flush(context.Context) error {
	c.flushed = true
	return nil
}

func mustSchema(t *testing.T, fields map[string]any) *Schema {
	t.Helper()
	s, err := ParseSchema(fields)
	require.NoError(t, err)
	return s
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
}

func TestParseSchema(t *testing.T) {
	s := mustSchema(t, map[string]any{
		"event_id": "$uuid",
		"quantity": "$intrange(1, 10)",
		"source":   "web",
		"version":  2,
	})

	assert.Equal(t, []string{"event_id", "quantity", "source", "version"}, s.FieldNames())
	assert.Equal(t, "uuid", s.Fields[0].Generator)
	assert.Equal(t, []string{"1", "10"}, s.Fields[1].Args)
	assert.Empty(t, s.Fields[2].Generator)
	assert.Equal(t, 2.0, s.Fields[3].Literal)
	assert.True(t, s.HasField("source"))
	assert.False(t, s.HasField("missing"))
}

func TestParseSchema_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]any
		wantErr string
	}{
		{name: "empty", fields: map[string]any{}, wantErr: "no fields"},
		{name: "unknown", fields: map[string]any{"x": "$nope"}, wantErr: "field x: unknown generator"},
		{name: "bad intrange", fields: map[string]any{"x": "$intrange(5)"}, wantErr: "intrange expects"},
		{name: "inverted intrange", fields: map[string]any{"x": "$intrange(5, 1)"}, wantErr: "lower than min"},
		{name: "args on uuid", fields: map[string]any{"x": "$uuid(1)"}, wantErr: "takes no arguments"},
		{name: "empty choice", fields: map[string]any{"x": "$choice()"}, wantErr: "at least one option"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema(tt.fields)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: nil},
		{raw: "1, 10", want: []string{"1", "10"}},
		{raw: `"a,b", c`, want: []string{"a,b", "c"}},
		{raw: `'x, y',"z"`, want: []string{"x, y", "z"}},
		{raw: `don't, stop`, want: []string{"don't", "stop"}},
		{raw: `%Y-%m-%d %H:%M:%S`, want: []string{"%Y-%m-%d %H:%M:%S"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, splitArgs(tt.raw))
		})
	}
}

func TestGenerator_QuotedChoiceAndFullIntRange(t *testing.T) {
	s := mustSchema(t, map[string]any{
		"color": `$choice("red,dark", blue)`,
		"big":   "$intrange(-9223372036854775808, 9223372036854775807)",
		"top":   "$intrange(9223372036854775806, 9223372036854775807)",
	})
	assert.Equal(t, []string{"red,dark", "blue"}, s.Fields[1].Args)

	g, err := New(s, Options{NumRecords: 100, Seed: 7, Now: fixedNow})
	require.NoError(t, err)

	c := &collector{}
	_, err = g.Run(context.Background(), c)
	require.NoError(t, err)

	for _, e := range c.events {
		assert.Contains(t, []any{"red,dark", "blue"}, e["color"])
		assert.IsType(t, int64(0), e["big"])
		assert.GreaterOrEqual(t, e["top"].(int64), int64(math.MaxInt64-1))
	}
}

func TestLoadSchema_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"$uuid4","name":"$name"}`), 0o644))

	s, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, s.FieldNames())

	_, err = LoadSchema(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestGenerator_FieldValues(t *testing.T) {
	s := mustSchema(t, map[string]any{
		"id":         "$uuid",
		"name":       "$name",
		"email":      "$email",
		"qty":        "$intrange(1, 3)",
		"price":      "$price(1, 100)",
		"created_at": "$datetime(%Y-%m-%d %H:%M:%S)",
		"day":        "$datetime(%Y/%m/%d)",
		"ts":         "$timestamp",
		"color":      "$choice(red, green, blue)",
		"kind":       "$constant(order)",
		"active":     "$boolean",
		"greeting":   "$greeting",
		"text":       "$text",
	})

	g, err := New(s, Options{NumRecords: 50, Seed: 42, Now: fixedNow})
	require.NoError(t, err)

	c := &collector{}
	stats, err := g.Run(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, c.events, 50)
	assert.True(t, c.flushed)
	assert.Equal(t, 50, stats.TotalGenerated)
	assert.Zero(t, stats.TotalDuplicates)

	for _, e := range c.events {
		_, err := uuid.Parse(e["id"].(string))
		assert.NoError(t, err)
		assert.NotEmpty(t, e["name"])
		assert.Contains(t, e["email"], "@")

		qty := e["qty"].(int64)
		assert.GreaterOrEqual(t, qty, int64(1))
		assert.LessOrEqual(t, qty, int64(3))

		p := e["price"].(float64)
		assert.GreaterOrEqual(t, p, 1.0)
		assert.LessOrEqual(t, p, 100.0)
		assert.InDelta(t, math.Round(p*100), p*100, 1e-6, "price has two decimals")

		assert.Equal(t, "2025-03-04 05:06:07", e["created_at"])
		assert.Equal(t, "2025/03/04", e["day"])
		assert.Equal(t, fixedNow().Unix(), e["ts"])
		assert.Contains(t, []string{"red", "green", "blue"}, e["color"])
		assert.Equal(t, "order", e["kind"])
		assert.IsType(t, true, e["active"])
		assert.Contains(t, greetings, e["greeting"])
		assert.NotEmpty(t, e["text"])
	}
}

func TestGenerator_DeterministicWithSeed(t *testing.T) {
	s := mustSchema(t, map[string]any{"id": "$uuid", "n": "$intrange(1, 1000)"})

	run := func() []models.Event {
		g, err := New(s, Options{NumRecords: 20, Seed: 7, Now: fixedNow})
		require.NoError(t, err)
		c := &collector{}
		_, err = g.Run(context.Background(), c)
		require.NoError(t, err)
		return c.events
	}

	assert.Equal(t, run(), run())
}

func TestGenerator_DuplicationStats(t *testing.T) {
	s := mustSchema(t, map[string]any{"event_id": "$uuid", "name": "$name"})

	g, err := New(s, Options{
		NumRecords: 1000,
		Seed:       1,
		Now:        fixedNow,
		Duplication: &DuplicationOptions{
			Ratio:      0.3,
			KeyField:   "event_id",
			TimeWindow: time.Hour,
		},
	})
	require.NoError(t, err)

	c := &collector{}
	stats, err := g.Run(context.Background(), c)
	require.NoError(t, err)

	assert.True(t, stats.Duplication)
	assert.Equal(t, 1000, stats.TotalGenerated+stats.TotalDuplicates)
	assert.Greater(t, stats.TotalDuplicates, 0)
	assert.InDelta(t, 0.3, stats.DuplicationRatio, 0.1)

	unique := map[string]bool{}
	for _, e := range c.events {
		unique[e["event_id"].(string)] = true
	}
	assert.Len(t, unique, stats.UniqueEvents())
}

func TestGenerator_FirstRecordNeverDuplicate(t *testing.T) {
	s := mustSchema(t, map[string]any{"event_id": "$uuid"})

	g, err := New(s, Options{
		NumRecords:  10,
		Seed:        3,
		Now:         fixedNow,
		Duplication: &DuplicationOptions{Ratio: 1, KeyField: "event_id"},
	})
	require.NoError(t, err)

	c := &collector{}
	stats, err := g.Run(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalGenerated)
	assert.Equal(t, 9, stats.TotalDuplicates)
	for _, e := range c.events {
		assert.Equal(t, c.events[0]["event_id"], e["event_id"])
	}
}

func TestGenerator_TimeWindowEviction(t *testing.T) {
	s := mustSchema(t, map[string]any{"event_id": "$uuid"})

	clock := fixedNow()
	g, err := New(s, Options{
		NumRecords: 1,
		Seed:       3,
		Now:        func() time.Time { return clock },
		Duplication: &DuplicationOptions{
			Ratio:      1,
			KeyField:   "event_id",
			TimeWindow: time.Minute,
		},
	})
	require.NoError(t, err)

	first, dup := g.next()
	assert.False(t, dup)

	_, dup = g.next()
	assert.True(t, dup)

	clock = clock.Add(2 * time.Minute)
	second, dup := g.next()
	assert.False(t, dup, "expired events can not be duplicated")
	assert.NotEqual(t, first["event_id"], second["event_id"])
}

func TestGenerator_KeyOverrideCycles(t *testing.T) {
	s := mustSchema(t, map[string]any{"user_id": "$uuid", "name": "$name"})
	keys := []string{"a", "b", "c"}

	g, err := New(s, Options{
		NumRecords:  7,
		Seed:        5,
		KeyOverride: &KeyOverride{Field: "user_id", Keys: keys},
	})
	require.NoError(t, err)

	c := &collector{}
	_, err = g.Run(context.Background(), c)
	require.NoError(t, err)

	got := make([]string, len(c.events))
	for i, e := range c.events {
		got[i] = e["user_id"].(string)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a"}, got)
}

func TestNew_Validation(t *testing.T) {
	s := mustSchema(t, map[string]any{"id": "$uuid"})

	_, err := New(nil, Options{})
	assert.Error(t, err)

	_, err = New(s, Options{NumRecords: -1})
	assert.Error(t, err)

	_, err = New(s, Options{Duplication: &DuplicationOptions{Ratio: 1.5, KeyField: "id"}})
	assert.ErrorContains(t, err, "between 0 and 1")

	_, err = New(s, Options{Duplication: &DuplicationOptions{Ratio: 0.5, KeyField: "other"}})
	assert.ErrorContains(t, err, "not in the schema")
	assert.ErrorContains(t, err, "fields: id")

	_, err = New(s, Options{KeyOverride: &KeyOverride{Field: "id"}})
	assert.ErrorContains(t, err, "at least one key")
}

func TestGenerator_PublishErrorStops(t *testing.T) {
	s := mustSchema(t, map[string]any{"id": "$uuid"})
	g, err := New(s, Options{NumRecords: 10, Seed: 1})
	require.NoError(t, err)

	c := &collector{failAt: 4}
	stats, err := g.Run(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, 3, stats.TotalGenerated)
	assert.False(t, c.flushed)
}

func TestGenerator_CanceledContext(t *testing.T) {
	s := mustSchema(t, map[string]any{"id": "$uuid"})
	g, err := New(s, Options{NumRecords: 10, RPS: 5, Seed: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Run(ctx, &collector{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateKeys(t *testing.T) {
	keys := GenerateKeys(100, 9)
	require.Len(t, keys, 100)

	seen := map[string]bool{}
	for _, k := range keys {
		_, err := uuid.Parse(k)
		require.NoError(t, err)
		seen[k] = true
	}
	assert.Len(t, seen, 100)
	assert.Equal(t, keys, GenerateKeys(100, 9))
}
