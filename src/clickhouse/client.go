package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
)

const DefaultInsertBatchSize = 10000

type ConnectOptions struct {
	Addr        string
	Secure      bool
	SkipVerify  bool
	Database    string
	Username    string
	Password    string
	DialTimeout time.Duration
}

// OptionsFromSink arma las opciones de conexión a partir del sink del pipeline.
func OptionsFromSink(sink models.SinkConfig, overrides map[string]string,
	defaultHttpPort int, dialTimeout time.Duration) (ConnectOptions, error) {

	password, err := sink.DecodedPassword()
	if err != nil {
		return ConnectOptions{}, err
	}

	addr, secure := ResolveAddress(sink, overrides, defaultHttpPort)

	return ConnectOptions{
		Addr:        addr,
		Secure:      secure,
		SkipVerify:  sink.SkipCertificateVerification,
		Database:    sink.Database,
		Username:    sink.Username,
		Password:    password,
		DialTimeout: dialTimeout,
	}, nil
}

type Client struct {
	conn   driver.Conn
	addr   string
	logger observability.Logger
}

func Open(ctx context.Context, opts ConnectOptions, logger observability.Logger) (*Client, error) {
	var tlsConfig *tls.Config
	if opts.Secure {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: opts.SkipVerify,
		}
	}

	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr:     []string{opts.Addr},
		Protocol: clickhouse.HTTP,
		TLS:      tlsConfig,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection %s: %w", opts.Addr, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse %s: %w", opts.Addr, err)
	}

	logger.Debug(ctx, "Conexión a ClickHouse establecida", "addr", opts.Addr, "secure", opts.Secure)

	return &Client{conn: conn, addr: opts.Addr, logger: logger}, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close clickhouse connection: %w", err)
	}
	return nil
}

func (c *Client) TableExists(ctx context.Context, table string) (bool, error) {
	sanitized, err := SanitizeTable(table)
	if err != nil {
		return false, err
	}

	var exists uint8
	if err := c.conn.QueryRow(ctx, fmt.Sprintf(EXISTS_TABLE_QUERY, sanitized)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}

	return exists == 1, nil
}

// CreateTableIfNotExists crea la tabla del sink. Devuelve true si la tabla no existía.
func (c *Client) CreateTableIfNotExists(ctx context.Context, cfg *models.PipelineConfig) (bool, error) {
	exists, err := c.TableExists(ctx, cfg.Sink.Table)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	query, err := BuildCreateTableQuery(cfg)
	if err != nil {
		return false, err
	}

	if err := c.conn.Exec(ctx, query); err != nil {
		return false, fmt.Errorf("create table %s: %w", cfg.Sink.Table, err)
	}

	c.logger.Info(ctx, "Tabla creada", "table", cfg.Sink.Table)
	return true, nil
}

// CreateOrdersTable crea la tabla ReplacingMergeTree usada por el walkthrough.
func (c *Client) CreateOrdersTable(ctx context.Context, table string) error {
	sanitized, err := SanitizeTable(table)
	if err != nil {
		return err
	}

	if err := c.conn.Exec(ctx, fmt.Sprintf(CREATE_ORDERS_TABLE_QUERY, sanitized)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (c *Client) Count(ctx context.Context, table string) (uint64, error) {
	sanitized, err := SanitizeTable(table)
	if err != nil {
		return 0, err
	}

	var count uint64
	if err := c.conn.QueryRow(ctx, fmt.Sprintf(COUNT_QUERY, sanitized)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}

	return count, nil
}

func (c *Client) CountDistinct(ctx context.Context, table string, column string) (uint64, error) {
	sanitized, err := SanitizeTable(table)
	if err != nil {
		return 0, err
	}

	var count uint64
	query := fmt.Sprintf(COUNT_DISTINCT_QUERY, QuoteIdentifier(column), sanitized)
	if err := c.conn.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct %s in %s: %w", column, table, err)
	}

	return count, nil
}

func (c *Client) Truncate(ctx context.Context, table string) error {
	sanitized, err := SanitizeTable(table)
	if err != nil {
		return err
	}

	if err := c.conn.Exec(ctx, fmt.Sprintf(TRUNCATE_QUERY, sanitized)); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}

	return nil
}

// SampleRows devuelve hasta n filas con sus valores convertidos a texto.
func (c *Client) SampleRows(ctx context.Context, table string, n int) ([]string, [][]string, error) {
	sanitized, err := SanitizeTable(table)
	if err != nil {
		return nil, nil, err
	}

	rows, err := c.conn.Query(ctx, fmt.Sprintf(SAMPLE_ROWS_QUERY, sanitized, n))
	if err != nil {
		return nil, nil, fmt.Errorf("query sample rows from %s: %w", table, err)
	}
	defer rows.Close()

	columnTypes := rows.ColumnTypes()
	columns := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = ct.Name()
	}

	result := make([][]string, 0, n)
	for rows.Next() {
		dest := make([]any, len(columnTypes))
		for i, ct := range columnTypes {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan sample row: %w", err)
		}

		values := make([]string, len(dest))
		for i, d := range dest {
			values[i] = stringify(reflect.ValueOf(d).Elem())
		}
		result = append(result, values)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sample rows: %w", err)
	}

	return columns, result, nil
}

// InsertRows inserta las filas en lotes de batchSize.
func (c *Client) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, batchSize int) error {
	sanitized, err := SanitizeTable(table)
	if err != nil {
		return err
	}

	if batchSize <= 0 {
		batchSize = DefaultInsertBatchSize
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = QuoteIdentifier(col)
	}
	query := fmt.Sprintf(INSERT_QUERY, sanitized, strings.Join(quoted, ", "))

	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		if err := c.sendBatch(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert rows [%d:%d] into %s: %w", start, end, table, err)
		}
	}

	return nil
}

func (c *Client) sendBatch(ctx context.Context, query string, rows [][]any) error {
	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	c.logger.Trace(ctx, "Lote enviado a ClickHouse", "rows", len(rows))
	return nil
}

func stringify(v reflect.Value) string {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "NULL"
		}
		v = v.Elem()
	}

	if t, ok := v.Interface().(time.Time); ok {
		return t.Format(time.DateTime)
	}

	return fmt.Sprint(v.Interface())
}
