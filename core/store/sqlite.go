package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/voltmesh/prodsim/core/model"
)

// SQLiteStore persists snapshots to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS sim_steps (
        stage TEXT NOT NULL,
        step INTEGER NOT NULL,
        run_id TEXT,
        status TEXT,
        snapshot TEXT,
        PRIMARY KEY (stage, step)
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) WriteStep(ctx context.Context, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sim_steps (stage, step, run_id, status, snapshot) VALUES (?, ?, ?, ?, ?)`,
		snap.Stage, snap.Step, snap.RunID, snap.Status, string(b))
	if err != nil {
		var count int
		row := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sim_steps WHERE stage = ? AND step = ?`, snap.Stage, snap.Step)
		if scanErr := row.Scan(&count); scanErr == nil && count > 0 {
			return &ErrDuplicateStep{Stage: snap.Stage, Step: snap.Step}
		}
		return err
	}
	return nil
}

func (s *SQLiteStore) MarkStepFailed(ctx context.Context, stage string, step int, reason string) error {
	return s.WriteStep(ctx, failedMarker(stage, step, reason))
}

func (s *SQLiteStore) load(ctx context.Context, stage string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT snapshot FROM sim_steps WHERE stage = ? ORDER BY step`, stage)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var snaps []Snapshot
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *SQLiteStore) ListVariableNames(ctx context.Context, stage string) ([]string, error) {
	snaps, err := s.load(ctx, stage)
	if err != nil {
		return nil, err
	}
	return projectVariableNames(snaps), nil
}

func (s *SQLiteStore) ListParameterNames(ctx context.Context, stage string) ([]string, error) {
	snaps, err := s.load(ctx, stage)
	if err != nil {
		return nil, err
	}
	return projectParameterNames(snaps), nil
}

func (s *SQLiteStore) ReadVariables(ctx context.Context, stage string, names []string, window *model.TimeWindow) ([]StepFrame, error) {
	snaps, err := s.load(ctx, stage)
	if err != nil {
		return nil, err
	}
	return projectFrames(snaps, names, window), nil
}

func (s *SQLiteStore) ReadRealizedVariables(ctx context.Context, stage string, names []string) ([]RealizedSeries, error) {
	snaps, err := s.load(ctx, stage)
	if err != nil {
		return nil, err
	}
	return projectRealized(snaps, names), nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
