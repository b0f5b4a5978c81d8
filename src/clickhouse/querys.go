package clickhouse

const EXISTS_TABLE_QUERY = "EXISTS TABLE %s"

const CREATE_TABLE_QUERY = "CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree ORDER BY %s"

const COUNT_QUERY = "SELECT count() FROM %s"

const COUNT_DISTINCT_QUERY = "SELECT count(DISTINCT %s) FROM %s"

const TRUNCATE_QUERY = "TRUNCATE TABLE %s"

const SAMPLE_ROWS_QUERY = "SELECT * FROM %s LIMIT %d"

const INSERT_QUERY = "INSERT INTO %s (%s)"

const CREATE_ORDERS_TABLE_QUERY = `CREATE TABLE IF NOT EXISTS %s (
	order_id String,
	user_id String,
	product_id String,
	quantity Int64,
	price Float64,
	created_at DateTime
) ENGINE = ReplacingMergeTree ORDER BY order_id`
