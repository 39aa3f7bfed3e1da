package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OptimizationRun is one append-only audit record of an orchestrator
// job. It is written after the job completes (success or failure) and
// is never updated — operators read it to see why a past incumbent was
// invalid without re-running the job.
type OptimizationRun struct {
	ID              uuid.UUID      `json:"id"`
	JobID           uuid.UUID      `json:"job_id"`
	Operation       string         `json:"operation"` // "schedule", "matrix" or "matrix_all"
	Source          string         `json:"source"`    // schedule: "ga", "greedy", "greedy_fallback"; matrix: "single" or "joint"; empty on error
	Fitness         float64        `json:"fitness"`
	IsValid         bool           `json:"is_valid"`
	Failed          bool           `json:"failed"`
	Reason          string         `json:"reason,omitempty"`
	EmployeeCount   int            `json:"employee_count"`
	MatrixCount     int            `json:"matrix_count"`
	Generations     int            `json:"generations"`
	Duration        time.Duration  `json:"duration"`
	RequestDigest   string         `json:"request_digest,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// OptimizationRunRepository appends and reads back audit records.
type OptimizationRunRepository struct {
	db DB
}

// NewOptimizationRunRepository builds a repository over the given
// database handle.
func NewOptimizationRunRepository(db DB) *OptimizationRunRepository {
	return &OptimizationRunRepository{db: db}
}

// Schema returns the DDL for the optimization_runs table, for use in a
// migration or local bootstrap script.
const Schema = `
CREATE TABLE IF NOT EXISTS optimization_runs (
	id               UUID PRIMARY KEY,
	job_id           UUID NOT NULL,
	operation        TEXT NOT NULL,
	source           TEXT NOT NULL,
	fitness          DOUBLE PRECISION NOT NULL,
	is_valid         BOOLEAN NOT NULL,
	failed           BOOLEAN NOT NULL,
	reason           TEXT,
	employee_count   INTEGER NOT NULL,
	matrix_count     INTEGER NOT NULL,
	generations      INTEGER NOT NULL,
	duration_ms      BIGINT NOT NULL,
	request_digest   TEXT,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS optimization_runs_job_id_idx ON optimization_runs (job_id);
CREATE INDEX IF NOT EXISTS optimization_runs_created_at_idx ON optimization_runs (created_at DESC);
`

// Append writes one completed run. It assigns run.ID and run.CreatedAt
// if they are unset.
func (r *OptimizationRunRepository) Append(ctx context.Context, run *OptimizationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO optimization_runs (
			id, job_id, operation, source, fitness, is_valid, failed, reason,
			employee_count, matrix_count, generations, duration_ms, request_digest, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.JobID, run.Operation, run.Source, run.Fitness, run.IsValid, run.Failed, run.Reason,
		run.EmployeeCount, run.MatrixCount, run.Generations, run.Duration.Milliseconds(), run.RequestDigest, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append optimization run: %w", err)
	}
	return nil
}

// GetByJobID returns the audit record for a single job, or nil if none
// was recorded.
func (r *OptimizationRunRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*OptimizationRun, error) {
	query := `
		SELECT id, job_id, operation, source, fitness, is_valid, failed, reason,
			employee_count, matrix_count, generations, duration_ms, request_digest, created_at
		FROM optimization_runs
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, jobID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// List returns the most recent runs matching filter, newest first.
func (r *OptimizationRunRepository) List(ctx context.Context, filter ListFilter) ([]*OptimizationRun, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Operation != "" {
		conditions = append(conditions, fmt.Sprintf("operation = $%d", argNum))
		args = append(args, filter.Operation)
		argNum++
	}
	if filter.Failed != nil {
		conditions = append(conditions, fmt.Sprintf("failed = $%d", argNum))
		args = append(args, *filter.Failed)
		argNum++
	}
	if filter.Since != "" {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argNum))
		args = append(args, filter.Since)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT id, job_id, operation, source, fitness, is_valid, failed, reason,
			employee_count, matrix_count, generations, duration_ms, request_digest, created_at
		FROM optimization_runs %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argNum, argNum+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list optimization runs: %w", err)
	}
	defer rows.Close()

	var runs []*OptimizationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*OptimizationRun, error) {
	run := &OptimizationRun{}
	var durationMS int64
	var reason, digest sql.NullString

	err := row.Scan(
		&run.ID, &run.JobID, &run.Operation, &run.Source, &run.Fitness, &run.IsValid, &run.Failed, &reason,
		&run.EmployeeCount, &run.MatrixCount, &run.Generations, &durationMS, &digest, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Reason = reason.String
	run.RequestDigest = digest.String
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

// marshalExtra is a small helper kept for callers that want to attach
// free-form context to a run's request_digest without adding a column.
func marshalExtra(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
