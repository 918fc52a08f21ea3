package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
)

// IDMapper decides how employee identifiers are stored. Hash must be stable
// so records of one employee can be found and erased later.
type IDMapper interface {
	Hash(employeeID string) string
	Display(employeeID string) string
}

type plainIDs struct{}

func (plainIDs) Hash(id string) string    { return id }
func (plainIDs) Display(id string) string { return id }

// Repository handles database operations
type Repository struct {
	db  *DB
	ids IDMapper
}

// NewRepository creates a repository. A nil mapper stores identifiers as
// given.
func NewRepository(db *DB, ids IDMapper) *Repository {
	if ids == nil {
		ids = plainIDs{}
	}
	return &Repository{db: db, ids: ids}
}

// SaveReport stores a batch report with all its results and failures in one
// transaction.
func (r *Repository) SaveReport(ctx context.Context, report *analysis.BatchReport) (*Run, error) {
	run := NewRun(report)

	insertRun, err := r.db.GetPreparedStatement("insert_run")
	if err != nil {
		return nil, err
	}
	insertPrediction, err := r.db.GetPreparedStatement("insert_prediction")
	if err != nil {
		return nil, err
	}
	insertFailure, err := r.db.GetPreparedStatement("insert_failure")
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.StmtContext(ctx, insertRun).ExecContext(ctx,
		run.ID, run.Source, run.Convention, run.SchemaSource, run.Total, run.Burnout,
		run.NoBurnout, run.BurnoutPercentage, run.Failed, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	predStmt := tx.StmtContext(ctx, insertPrediction)
	failStmt := tx.StmtContext(ctx, insertFailure)

	for i, res := range indexedResults(report) {
		if res.OK() {
			p := res.Result
			_, err = predStmt.ExecContext(ctx,
				uuid.New().String(), run.ID, res.Index, r.ids.Display(p.EmployeeID), r.ids.Hash(p.EmployeeID),
				p.Prediction, p.BurnoutProbability, p.NoBurnoutProbability, p.Confidence,
				p.Status, p.Recommendation, p.Color)
			if err != nil {
				return nil, fmt.Errorf("failed to insert prediction %d: %w", i, err)
			}
			continue
		}
		if res.Err == nil {
			continue
		}
		e := res.Err
		_, err = failStmt.ExecContext(ctx,
			uuid.New().String(), run.ID, e.Index, r.ids.Display(e.EmployeeID), r.ids.Hash(e.EmployeeID),
			string(e.Category), e.Message)
		if err != nil {
			return nil, fmt.Errorf("failed to insert failure %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// indexedResults returns per-record outcomes. Reports built by hand may only
// carry Predictions and Errors; their positions stand in for the index.
func indexedResults(report *analysis.BatchReport) []analysis.RecordResult {
	if len(report.Results) > 0 {
		return report.Results
	}
	out := make([]analysis.RecordResult, 0, len(report.Predictions)+len(report.Errors))
	for i := range report.Predictions {
		out = append(out, analysis.RecordResult{Index: i, Result: &report.Predictions[i]})
	}
	for i := range report.Errors {
		out = append(out, analysis.RecordResult{Index: report.Errors[i].Index, Err: &report.Errors[i]})
	}
	return out
}

// GetRun loads a stored run with its results and failures.
func (r *Repository) GetRun(ctx context.Context, id string) (*RunReport, error) {
	stmt, err := r.db.GetPreparedStatement("get_run")
	if err != nil {
		return nil, err
	}

	var run Run
	err = stmt.QueryRowContext(ctx, id).Scan(
		&run.ID, &run.Source, &run.Convention, &run.SchemaSource, &run.Total,
		&run.Burnout, &run.NoBurnout, &run.BurnoutPercentage, &run.Failed, &run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("run", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	report := &RunReport{Run: run, Predictions: []PredictionRow{}, Errors: []FailureRow{}}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, record_index, employee_id, employee_hash, prediction,
			burnout_probability, no_burnout_probability, confidence, status, recommendation, color
		FROM predictions WHERE run_id = ? ORDER BY record_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p PredictionRow
		if err := rows.Scan(
			&p.ID, &p.RunID, &p.RecordIndex, &p.EmployeeID, &p.EmployeeHash, &p.Prediction,
			&p.BurnoutProbability, &p.NoBurnoutProbability, &p.Confidence, &p.Status, &p.Recommendation, &p.Color,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		report.Predictions = append(report.Predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read predictions: %w", err)
	}

	failures, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, record_index, employee_id, employee_hash, category, message
		FROM failures WHERE run_id = ? ORDER BY record_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer failures.Close()

	for failures.Next() {
		var f FailureRow
		if err := failures.Scan(&f.ID, &f.RunID, &f.RecordIndex, &f.EmployeeID, &f.EmployeeHash, &f.Category, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		report.Errors = append(report.Errors, f)
	}
	if err := failures.Err(); err != nil {
		return nil, fmt.Errorf("failed to read failures: %w", err)
	}

	return report, nil
}

// ListRuns returns the most recent run headers, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, convention, schema_source, total, burnout, no_burnout,
			burnout_percentage, failed, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.Source, &run.Convention, &run.SchemaSource, &run.Total,
			&run.Burnout, &run.NoBurnout, &run.BurnoutPercentage, &run.Failed, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRunsBefore removes runs created before cutoff together with their
// results. It returns the number of runs removed.
func (r *Repository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return res.RowsAffected()
}

// DeleteEmployee erases every stored result and failure of one employee and
// returns how many rows went.
func (r *Repository) DeleteEmployee(ctx context.Context, employeeID string) (int64, error) {
	hash := r.ids.Hash(employeeID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"predictions", "failures"} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE employee_hash = ?", hash)
		if err != nil {
			return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deletion: %w", err)
	}
	return total, nil
}
