// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists audit events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite audit database at path and
// ensures the schema. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing database handle and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record stores a single audit event.
func (s *SQLiteStore) Record(ctx context.Context, event Event) error {
	output, err := encodeOutput(event.Output)
	if err != nil {
		return err
	}
	recordedAt := event.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO call_audit_events (
			run_id, iteration, tool_name, status, output_json, error_text, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.RunID,
		event.Iteration,
		event.ToolName,
		event.Status,
		string(output),
		event.Error,
		recordedAt,
	)
	return err
}

// List returns audit events matching the filter in recording order.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT run_id, iteration, tool_name, status, output_json, error_text, recorded_at
		FROM call_audit_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.ToolName != "" {
		addFilter("tool_name = ?", filter.ToolName)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY recorded_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			outputJSON string
			recorded   sql.NullTime
		)
		if err := rows.Scan(
			&event.RunID,
			&event.Iteration,
			&event.ToolName,
			&event.Status,
			&outputJSON,
			&event.Error,
			&recorded,
		); err != nil {
			return nil, err
		}
		if outputJSON != "" && outputJSON != "null" {
			var output any
			if err := json.Unmarshal([]byte(outputJSON), &output); err == nil {
				event.Output = output
			}
		}
		if recorded.Valid {
			event.RecordedAt = recorded.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS call_audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			tool_name TEXT NOT NULL,
			status TEXT NOT NULL,
			output_json TEXT,
			error_text TEXT,
			recorded_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_call_audit_run ON call_audit_events (run_id);
	`)
	return err
}

func encodeOutput(output any) ([]byte, error) {
	if output == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(output)
	if err != nil {
		// Unserializable outputs degrade to their string form.
		return json.Marshal(stringify(output))
	}
	return data, nil
}

func stringify(output any) string {
	type stringer interface{ String() string }
	if s, ok := output.(stringer); ok {
		return s.String()
	}
	return "<unserializable>"
}
