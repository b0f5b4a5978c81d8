package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_WritesNDJSONPerTopic(t *testing.T) {
	dir := t.TempDir()
	factory, err := NewFileSinkFactory(dir, observability.NewNopLogger())
	require.NoError(t, err)

	ctx := context.Background()
	users, err := factory.CreateSink("users", "")
	require.NoError(t, err)
	again, err := factory.CreateSink("users", "")
	require.NoError(t, err)
	assert.Same(t, users, again)

	orders, err := factory.CreateSink("orders", "")
	require.NoError(t, err)

	require.NoError(t, users.Publish(ctx, models.Event{"id": "1", "name": "a"}))
	require.NoError(t, users.Publish(ctx, models.Event{"id": "2", "name": "b"}))
	require.NoError(t, orders.Publish(ctx, models.Event{"id": "9"}))
	require.NoError(t, users.Flush(ctx))
	require.NoError(t, factory.Close())

	lines := readLines(t, factory.PathFor("users"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "1", first["id"])

	assert.Len(t, readLines(t, factory.PathFor("orders")), 1)

	assert.Error(t, users.Publish(ctx, models.Event{"id": "3"}))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

type recordingInserter struct {
	batches [][][]any
	err     error
}

func (r *recordingInserter) InsertRows(_ context.Context, _ string, _ []string, rows [][]any, _ int) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, rows)
	return nil
}

func TestClickHouseSink_Batches(t *testing.T) {
	ins := &recordingInserter{}
	s := NewClickHouseSink(ins, "orders", []string{"order_id", "created_at"},
		map[string]Converter{"created_at": DateTimeConverter(time.DateTime)}, 2)

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Publish(ctx, models.Event{
			"order_id":   id,
			"created_at": "2025-01-02 03:04:05",
			"ignored":    true,
		}))
	}
	require.Len(t, ins.batches, 1)

	require.NoError(t, s.Flush(ctx))
	require.Len(t, ins.batches, 2)
	assert.Len(t, ins.batches[0], 2)
	assert.Len(t, ins.batches[1], 1)

	assert.Equal(t, "c", ins.batches[1][0][0])
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), ins.batches[1][0][1])

	require.NoError(t, s.Flush(ctx))
	assert.Len(t, ins.batches, 2)
}

func TestClickHouseSink_Errors(t *testing.T) {
	ctx := context.Background()

	s := NewClickHouseSink(&recordingInserter{}, "orders", []string{"order_id"}, nil, 10)
	assert.ErrorContains(t, s.Publish(ctx, models.Event{"other": 1}), `no field "order_id"`)

	s = NewClickHouseSink(&recordingInserter{}, "orders", []string{"created_at"},
		map[string]Converter{"created_at": DateTimeConverter(time.DateTime)}, 10)
	assert.ErrorContains(t, s.Publish(ctx, models.Event{"created_at": "yesterday"}), "convert field")

	boom := errors.New("boom")
	s = NewClickHouseSink(&recordingInserter{err: boom}, "orders", []string{"order_id"}, nil, 10)
	require.NoError(t, s.Publish(ctx, models.Event{"order_id": "a"}))
	assert.ErrorIs(t, s.Flush(ctx), boom)
}

func TestEncodeEvent_Key(t *testing.T) {
	value, key, err := encodeEvent(models.Event{"user_id": "u1", "n": 3}, "user_id")
	require.NoError(t, err)
	assert.Equal(t, []byte("u1"), key)
	assert.JSONEq(t, `{"user_id":"u1","n":3}`, string(value))

	_, key, err = encodeEvent(models.Event{"n": 3}, "user_id")
	require.NoError(t, err)
	assert.Nil(t, key)

	_, key, err = encodeEvent(models.Event{"user_id": 42}, "user_id")
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), key)

	_, _, err = encodeEvent(models.Event{"bad": make(chan int)}, "")
	assert.Error(t, err)
}

func TestDeliveryMonitor_CountsReports(t *testing.T) {
	dm := &deliveryMonitor{logger: observability.NewNopLogger()}

	dm.track()
	dm.track()
	dm.track()
	dm.record(nil)
	dm.record(nil)
	dm.record(errors.New("timed out"))

	require.NoError(t, dm.waitInflight(context.Background()))
	delivered, failed, firstErr := dm.result()
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 1, failed)
	assert.EqualError(t, firstErr, "timed out")
}

func TestDeliveryMonitor_WaitRespectsContext(t *testing.T) {
	dm := &deliveryMonitor{logger: observability.NewNopLogger()}
	dm.track()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, dm.waitInflight(ctx), context.DeadlineExceeded)
	dm.record(nil)
}
