package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"dev/bravebird/clinic-ui-verify/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

//go:embed schema.sql
var schema string

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection. The DSN needs parseTime=true.
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// NewWithConn wraps an open connection
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate creates the tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// ==================== Verification Runs ====================

const runColumns = `id, verifier, temporal_run_id, temporal_workflow_id, status,
		       base_url, started_at, completed_at, error_message`

// CreateRun creates a new verification run
func (db *DB) CreateRun(ctx context.Context, run *models.VerificationRun) error {
	query := `
		INSERT INTO verification_runs (id, verifier, temporal_run_id, temporal_workflow_id, status, base_url, started_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.Verifier,
		run.TemporalRunID,
		run.TemporalWorkflowID,
		run.Status,
		run.BaseURL,
		run.StartedAt,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// SetTemporalIDs records the workflow execution a run was started as
func (db *DB) SetTemporalIDs(ctx context.Context, id, workflowID, runID string) error {
	query := `
		UPDATE verification_runs
		SET temporal_workflow_id = ?, temporal_run_id = ?
		WHERE id = ?
	`

	if _, err := db.conn.ExecContext(ctx, query, workflowID, runID, id); err != nil {
		return fmt.Errorf("failed to set temporal ids: %w", err)
	}
	return nil
}

// GetRun retrieves a verification run by ID
func (db *DB) GetRun(ctx context.Context, id string) (*models.VerificationRun, error) {
	query := `SELECT ` + runColumns + ` FROM verification_runs WHERE id = ?`

	var run models.VerificationRun
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Verifier,
		&run.TemporalRunID,
		&run.TemporalWorkflowID,
		&run.Status,
		&run.BaseURL,
		&run.StartedAt,
		&run.CompletedAt,
		&run.ErrorMessage,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListRuns retrieves the most recent runs, optionally for one verifier
func (db *DB) ListRuns(ctx context.Context, verifier string, limit int) ([]models.VerificationRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM verification_runs`
	args := []interface{}{}
	if verifier != "" {
		query += ` WHERE verifier = ?`
		args = append(args, verifier)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []models.VerificationRun{}
	for rows.Next() {
		var run models.VerificationRun
		err := rows.Scan(
			&run.ID,
			&run.Verifier,
			&run.TemporalRunID,
			&run.TemporalWorkflowID,
			&run.Status,
			&run.BaseURL,
			&run.StartedAt,
			&run.CompletedAt,
			&run.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpdateRunStatus updates the status of a verification run
func (db *DB) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg string) error {
	query := `
		UPDATE verification_runs
		SET status = ?, error_message = ?,
		    completed_at = CASE WHEN ? IN ('success', 'failed', 'canceled') THEN NOW() ELSE completed_at END
		WHERE id = ?
	`

	if _, err := db.conn.ExecContext(ctx, query, status, errorMsg, status, id); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// ==================== Checkpoint Results ====================

// SaveCheckpointResults replaces the stored results of a run
func (db *DB) SaveCheckpointResults(ctx context.Context, runID string, results []models.CheckpointResult) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_results WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	query := `
		INSERT INTO checkpoint_results (run_id, sequence_id, name, status, lenient,
		                                screenshot_path, error_message, defect, executed_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range results {
		_, err := tx.ExecContext(ctx, query,
			runID,
			r.SequenceID,
			r.Name,
			r.Status,
			r.Lenient,
			r.ScreenshotPath,
			r.ErrorMessage,
			r.Defect,
			r.ExecutedAt,
			r.Duration,
		)
		if err != nil {
			return fmt.Errorf("failed to save result %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// GetCheckpointResults retrieves checkpoint results for a run
func (db *DB) GetCheckpointResults(ctx context.Context, runID string) ([]models.CheckpointResult, error) {
	query := `
		SELECT run_id, sequence_id, name, status, lenient,
		       screenshot_path, error_message, defect, executed_at, duration_ms
		FROM checkpoint_results
		WHERE run_id = ?
		ORDER BY sequence_id
	`

	rows, err := db.conn.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	defer rows.Close()

	results := []models.CheckpointResult{}
	for rows.Next() {
		var result models.CheckpointResult
		err := rows.Scan(
			&result.RunID,
			&result.SequenceID,
			&result.Name,
			&result.Status,
			&result.Lenient,
			&result.ScreenshotPath,
			&result.ErrorMessage,
			&result.Defect,
			&result.ExecutedAt,
			&result.Duration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
