package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"catchupfeed/internal/repository"
)

// PhaseRunRepo implements repository.PhaseRunRepository using SQLite.
type PhaseRunRepo struct {
	db *sql.DB
}

// NewPhaseRunRepo creates a new SQLite-backed phase run repository.
func NewPhaseRunRepo(db *sql.DB) repository.PhaseRunRepository {
	return &PhaseRunRepo{db: db}
}

func (r *PhaseRunRepo) Start(ctx context.Context, phase string, startedAt time.Time) (int64, error) {
	const query = `INSERT INTO phase_runs (phase, started_at) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, query, phase, startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("Start: ExecContext: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("Start: LastInsertId: %w", err)
	}
	return id, nil
}

func (r *PhaseRunRepo) Finish(ctx context.Context, id int64, endedAt time.Time, exitCode int, countsJSON string) error {
	const query = `UPDATE phase_runs SET ended_at = ?, exit_code = ?, counts_json = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, endedAt.UTC().Format(time.RFC3339), exitCode, countsJSON, id)
	if err != nil {
		return fmt.Errorf("Finish: ExecContext: %w", err)
	}
	return nil
}

func (r *PhaseRunRepo) Recent(ctx context.Context, limit int) ([]*repository.PhaseRun, error) {
	const query = `
SELECT id, phase, started_at, ended_at, exit_code, counts_json
FROM phase_runs
ORDER BY id DESC
LIMIT ?
`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*repository.PhaseRun, 0, limit)
	for rows.Next() {
		var pr repository.PhaseRun
		var startedAt string
		var endedAt sql.NullString
		var exitCode sql.NullInt64
		var countsJSON sql.NullString
		if err := rows.Scan(&pr.ID, &pr.Phase, &startedAt, &endedAt, &exitCode, &countsJSON); err != nil {
			return nil, fmt.Errorf("Recent: Scan: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			pr.StartedAt = t
		}
		if endedAt.Valid {
			if t, err := time.Parse(time.RFC3339, endedAt.String); err == nil {
				pr.EndedAt = &t
			}
		}
		if exitCode.Valid {
			v := int(exitCode.Int64)
			pr.ExitCode = &v
		}
		if countsJSON.Valid {
			pr.CountsJSON = countsJSON.String
		}
		runs = append(runs, &pr)
	}
	return runs, rows.Err()
}
