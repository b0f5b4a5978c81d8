package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// TopicCount resume lo publicado en un topic durante una ejecución.
type TopicCount struct {
	Topic      string `json:"topic"`
	Published  int    `json:"published"`
	Duplicates int    `json:"duplicates"`
}

// Run es una ejecución de la demo con su verificación.
type Run struct {
	ID         int64
	Kind       string
	PipelineID string
	StartedAt  time.Time
	Topics     []TopicCount
	Expected   int64
	Actual     int64
	Passed     bool
	DurationMs int64
}

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, CREATE_RUNS_TABLE_QUERY); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	topics, err := json.Marshal(run.Topics)
	if err != nil {
		return 0, fmt.Errorf("encode topic stats: %w", err)
	}

	res, err := s.db.ExecContext(ctx, INSERT_RUN_QUERY,
		run.Kind,
		run.PipelineID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		string(topics),
		run.Expected,
		run.Actual,
		run.Passed,
		run.DurationMs,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	return id, nil
}

// Latest devuelve las últimas n ejecuciones, la más reciente primero.
func (s *Store) Latest(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, LATEST_RUNS_QUERY, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			startedAt string
			topics    string
		)

		if err := rows.Scan(&run.ID, &run.Kind, &run.PipelineID, &startedAt, &topics,
			&run.Expected, &run.Actual, &run.Passed, &run.DurationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		if err := json.Unmarshal([]byte(topics), &run.Topics); err != nil {
			return nil, fmt.Errorf("decode topic stats: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}
