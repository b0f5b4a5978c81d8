package clickhouse

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
)

const localHttpPort = 8123

func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// SanitizeTable cita una tabla simple o calificada con base de datos.
func SanitizeTable(table string) (string, error) {

	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("invalid table %q", table)
	}

	parts := strings.Split(table, ".")

	switch len(parts) {

	case 1:
		return QuoteIdentifier(strings.TrimSpace(parts[0])), nil

	case 2:
		database := strings.TrimSpace(parts[0])
		tableName := strings.TrimSpace(parts[1])

		if database == "" || tableName == "" {
			return "", fmt.Errorf("invalid database or table name %q", table)
		}
		return QuoteIdentifier(database) + "." + QuoteIdentifier(tableName), nil
	}

	return "", fmt.Errorf("invalid qualified table %q", table)
}

// ResolveAddress decide a qué dirección HTTP conectarse. GlassFlow usa el puerto
// nativo dentro de docker; desde el host se usa el HTTP expuesto.
func ResolveAddress(sink models.SinkConfig, overrides map[string]string, defaultHttpPort int) (addr string, secure bool) {
	if override, ok := overrides[sink.Host]; ok {
		return override, sink.Secure
	}

	port := defaultHttpPort
	if sink.HttpPort != "" {
		if p, err := strconv.Atoi(sink.HttpPort); err == nil && p > 0 {
			port = p
		}
	}
	if port <= 0 {
		port = localHttpPort
	}

	return net.JoinHostPort(sink.Host, strconv.Itoa(port)), sink.Secure || port != localHttpPort
}

// OrderByColumn elige la clave de ordenamiento de la tabla: la columna del id de
// deduplicación si está mapeada, si no la primera columna.
func OrderByColumn(cfg *models.PipelineConfig) (string, error) {
	if len(cfg.Sink.TableMapping) == 0 {
		return "", fmt.Errorf("sink %s has no table_mapping", cfg.Sink.Table)
	}

	for _, t := range cfg.Source.Topics {
		if !t.Deduplication.Enabled {
			continue
		}
		for _, m := range cfg.Sink.TableMapping {
			if m.FieldName == t.Deduplication.IDField && (m.SourceID == "" || m.SourceID == t.Name) {
				return m.ColumnName, nil
			}
		}
	}

	return cfg.Sink.TableMapping[0].ColumnName, nil
}

// BuildCreateTableQuery genera el CREATE TABLE a partir del table_mapping. Las columnas
// repetidas (mismo nombre desde dos fuentes de un join) se declaran una sola vez.
func BuildCreateTableQuery(cfg *models.PipelineConfig) (string, error) {
	table, err := SanitizeTable(cfg.Sink.Table)
	if err != nil {
		return "", err
	}

	orderBy, err := OrderByColumn(cfg)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool, len(cfg.Sink.TableMapping))
	columns := make([]string, 0, len(cfg.Sink.TableMapping))

	for _, m := range cfg.Sink.TableMapping {
		if m.ColumnName == "" || m.ColumnType == "" {
			return "", fmt.Errorf("table_mapping for field %q needs column_name and column_type", m.FieldName)
		}
		if seen[m.ColumnName] {
			continue
		}
		seen[m.ColumnName] = true
		columns = append(columns, QuoteIdentifier(m.ColumnName)+" "+m.ColumnType)
	}

	return fmt.Sprintf(CREATE_TABLE_QUERY, table, strings.Join(columns, ", "), QuoteIdentifier(orderBy)), nil
}
