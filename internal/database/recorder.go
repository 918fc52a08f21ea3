package database

import (
	"context"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/resilience"
)

// Recorder writes batch reports to history. Lock contention is retried; a
// database that keeps failing is skipped for a while so scoring never waits
// on it.
type Recorder struct {
	repo    *Repository
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewRecorder wraps repo.
func NewRecorder(repo *Repository) *Recorder {
	retry := resilience.DefaultRetryConfig()
	retry.RetryableErrors = IsBusy

	return &Recorder{
		repo: repo,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			RecoveryTimeout:  30 * time.Second,
		}),
		retry: retry,
	}
}

// Record stores report and returns the new run.
func (r *Recorder) Record(ctx context.Context, report *analysis.BatchReport) (*Run, error) {
	var run *Run
	err := r.breaker.Call(func() error {
		return resilience.RetryWithConfig(ctx, r.retry, func(ctx context.Context) error {
			saved, err := r.repo.SaveReport(ctx, report)
			if err != nil {
				return err
			}
			run = saved
			return nil
		})
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to record run history", err)
	}
	return run, nil
}

// Stats reports the breaker state.
func (r *Recorder) Stats() map[string]interface{} {
	return r.breaker.GetStats()
}

// IsBusy reports whether err is SQLite lock contention worth retrying.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
