package analysis

import (
	"fmt"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
)

// EmployeeResult is the verdict reported for one employee.
type EmployeeResult struct {
	EmployeeID           string  `json:"employee_id"`
	Prediction           int     `json:"prediction"`
	BurnoutProbability   float64 `json:"burnout_probability"`
	NoBurnoutProbability float64 `json:"no_burnout_probability"`
	Confidence           float64 `json:"confidence"`
	Status               string  `json:"status"`
	Recommendation       string  `json:"recommendation"`
	Color                string  `json:"color"`
}

// RecordError describes why one record of a batch was not scored.
type RecordError struct {
	Index      int                     `json:"index"`
	EmployeeID string                  `json:"employee_id"`
	Category   apperrors.ErrorCategory `json:"category"`
	Message    string                  `json:"message"`
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s): %s", e.Index, e.EmployeeID, e.Message)
}

// RecordResult is the outcome for one record: exactly one of Result and Err
// is set.
type RecordResult struct {
	Index  int
	Result *EmployeeResult
	Err    *RecordError

	// Schema names the record did not produce, and record features the
	// schema does not know.
	Missing []string
	Dropped []string
}

// OK reports whether the record was scored.
func (r RecordResult) OK() bool {
	return r.Err == nil && r.Result != nil
}

// Summary aggregates the scored records of a batch.
type Summary struct {
	Total             int     `json:"total"`
	Burnout           int     `json:"burnout"`
	NoBurnout         int     `json:"no_burnout"`
	BurnoutPercentage float64 `json:"burnout_percentage"`
	Failed            int     `json:"failed"`
}

// BatchReport collects every record outcome of one input.
type BatchReport struct {
	Source       string           `json:"source"`
	Convention   string           `json:"convention"`
	SchemaSource string           `json:"schema_source"`
	Predictions  []EmployeeResult `json:"predictions"`
	Errors       []RecordError    `json:"errors"`
	Summary      Summary          `json:"summary"`

	Results []RecordResult `json:"-"`
}
