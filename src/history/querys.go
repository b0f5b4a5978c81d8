package history

const CREATE_RUNS_TABLE_QUERY = `CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	pipeline_id TEXT NOT NULL,
	started_at TEXT NOT NULL,
	topic_stats TEXT NOT NULL,
	expected INTEGER NOT NULL,
	actual INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
)`

const INSERT_RUN_QUERY = `INSERT INTO runs
	(kind, pipeline_id, started_at, topic_stats, expected, actual, passed, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const LATEST_RUNS_QUERY = `SELECT id, kind, pipeline_id, started_at, topic_stats, expected, actual, passed, duration_ms
	FROM runs ORDER BY id DESC LIMIT ?`
