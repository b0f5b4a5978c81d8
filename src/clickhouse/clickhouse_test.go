package clickhouse

import (
	"reflect"
	"testing"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "users", want: "`users`"},
		{in: "db.users", want: "`db`.`users`"},
		{in: "we`ird", want: "`we``ird`"},
		{in: "", wantErr: true},
		{in: "a.", wantErr: true},
		{in: "a.b.c", wantErr: true},
	}

	for _, tt := range tests {
		got, err := SanitizeTable(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestResolveAddress(t *testing.T) {
	overrides := map[string]string{"clickhouse": "localhost:8123"}

	addr, secure := ResolveAddress(models.SinkConfig{Host: "clickhouse"}, overrides, 8443)
	assert.Equal(t, "localhost:8123", addr)
	assert.False(t, secure)

	addr, secure = ResolveAddress(models.SinkConfig{Host: "ch.example.com"}, overrides, 8443)
	assert.Equal(t, "ch.example.com:8443", addr)
	assert.True(t, secure)

	addr, secure = ResolveAddress(models.SinkConfig{Host: "ch.local", HttpPort: "8123"}, overrides, 8443)
	assert.Equal(t, "ch.local:8123", addr)
	assert.False(t, secure)
}

func TestOptionsFromSink(t *testing.T) {
	opts, err := OptionsFromSink(models.SinkConfig{
		Host:     "clickhouse",
		Database: "default",
		Username: "default",
		Password: "c2VjcmV0",
	}, map[string]string{"clickhouse": "localhost:8123"}, 8443, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, "localhost:8123", opts.Addr)
	assert.Equal(t, time.Second, opts.DialTimeout)

	_, err = OptionsFromSink(models.SinkConfig{Password: "%%"}, nil, 8443, 0)
	assert.Error(t, err)
}

func TestBuildCreateTableQuery(t *testing.T) {
	cfg := &models.PipelineConfig{
		Source: models.SourceConfig{
			Topics: []models.TopicConfig{{
				Name:          "users",
				Deduplication: models.DeduplicationConfig{Enabled: true, IDField: "event_id"},
			}},
		},
		Sink: models.SinkConfig{
			Table: "users_dedup",
			TableMapping: []models.TableMapping{
				{SourceID: "users", FieldName: "user_id", ColumnName: "user_id", ColumnType: "String"},
				{SourceID: "users", FieldName: "event_id", ColumnName: "event_id", ColumnType: "UUID"},
			},
		},
	}

	q, err := BuildCreateTableQuery(cfg)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS `users_dedup` (`user_id` String, `event_id` UUID) ENGINE = MergeTree ORDER BY `event_id`",
		q)
}

func TestBuildCreateTableQuery_JoinUsesFirstColumnAndSkipsRepeated(t *testing.T) {
	cfg := &models.PipelineConfig{
		Source: models.SourceConfig{Topics: []models.TopicConfig{{Name: "orders"}, {Name: "users"}}},
		Sink: models.SinkConfig{
			Table: "orders_enriched",
			TableMapping: []models.TableMapping{
				{SourceID: "orders", FieldName: "order_id", ColumnName: "order_id", ColumnType: "String"},
				{SourceID: "orders", FieldName: "user_id", ColumnName: "user_id", ColumnType: "String"},
				{SourceID: "users", FieldName: "user_id", ColumnName: "user_id", ColumnType: "String"},
			},
		},
	}

	q, err := BuildCreateTableQuery(cfg)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS `orders_enriched` (`order_id` String, `user_id` String) ENGINE = MergeTree ORDER BY `order_id`",
		q)
}

func TestBuildCreateTableQuery_Errors(t *testing.T) {
	_, err := BuildCreateTableQuery(&models.PipelineConfig{Sink: models.SinkConfig{Table: "t"}})
	assert.ErrorContains(t, err, "no table_mapping")

	_, err = BuildCreateTableQuery(&models.PipelineConfig{Sink: models.SinkConfig{
		Table:        "t",
		TableMapping: []models.TableMapping{{FieldName: "a", ColumnName: "a"}},
	}})
	assert.ErrorContains(t, err, "column_type")
}

func TestStringify(t *testing.T) {
	s := "hello"
	var nilPtr *string
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, "hello", stringify(reflect.ValueOf(&s).Elem()))
	assert.Equal(t, "hello", stringify(reflect.ValueOf(&s)))
	assert.Equal(t, "NULL", stringify(reflect.ValueOf(nilPtr)))
	assert.Equal(t, "2025-01-02 03:04:05", stringify(reflect.ValueOf(ts)))
	assert.Equal(t, "42", stringify(reflect.ValueOf(uint64(42))))
}
