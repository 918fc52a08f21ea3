package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/analysis"
)

// Run is one scored batch.
type Run struct {
	ID                string    `json:"id" db:"id"`
	Source            string    `json:"source" db:"source"`
	Convention        string    `json:"convention" db:"convention"`
	SchemaSource      string    `json:"schema_source" db:"schema_source"`
	Total             int       `json:"total" db:"total"`
	Burnout           int       `json:"burnout" db:"burnout"`
	NoBurnout         int       `json:"no_burnout" db:"no_burnout"`
	BurnoutPercentage float64   `json:"burnout_percentage" db:"burnout_percentage"`
	Failed            int       `json:"failed" db:"failed"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// PredictionRow is a stored per-record result.
type PredictionRow struct {
	ID          string `json:"-" db:"id"`
	RunID       string `json:"-" db:"run_id"`
	RecordIndex int    `json:"record_index" db:"record_index"`
	analysis.EmployeeResult
	EmployeeHash string `json:"employee_hash" db:"employee_hash"`
}

// FailureRow is a stored per-record failure.
type FailureRow struct {
	ID           string `json:"-" db:"id"`
	RunID        string `json:"-" db:"run_id"`
	RecordIndex  int    `json:"record_index" db:"record_index"`
	EmployeeID   string `json:"employee_id" db:"employee_id"`
	EmployeeHash string `json:"employee_hash" db:"employee_hash"`
	Category     string `json:"category" db:"category"`
	Message      string `json:"message" db:"message"`
}

// RunReport is a run with everything recorded for it, in record order.
type RunReport struct {
	Run         Run             `json:"run"`
	Predictions []PredictionRow `json:"predictions"`
	Errors      []FailureRow    `json:"errors"`
}

// NewRun creates a run header for report with a generated ID.
func NewRun(report *analysis.BatchReport) *Run {
	return &Run{
		ID:                uuid.New().String(),
		Source:            report.Source,
		Convention:        report.Convention,
		SchemaSource:      report.SchemaSource,
		Total:             report.Summary.Total,
		Burnout:           report.Summary.Burnout,
		NoBurnout:         report.Summary.NoBurnout,
		BurnoutPercentage: report.Summary.BurnoutPercentage,
		Failed:            report.Summary.Failed,
		CreatedAt:         time.Now().UTC(),
	}
}
