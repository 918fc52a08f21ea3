package analysis

import (
	"fmt"
	"time"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/model"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/schema"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// Predictor runs the full pipeline for each record: normalize, derive KPI
// statistics, encode, assemble, align, scale, classify, interpret.
type Predictor struct {
	model     *model.Model
	extractor *features.Extractor
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics
	workers   int
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithWorkers scores batches on n goroutines. Results keep input order.
func WithWorkers(n int) Option {
	return func(p *Predictor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the logger used for drift and skipped records.
func WithLogger(l *monitoring.Logger) Option {
	return func(p *Predictor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records batch counters.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Predictor) { p.metrics = m }
}

// NewPredictor binds a loaded model to an extractor of the same convention.
func NewPredictor(m *model.Model, vocab *features.Vocabulary, referenceDate time.Time, opts ...Option) *Predictor {
	p := &Predictor{
		model:     m,
		extractor: features.NewExtractor(vocab, m.Convention(), referenceDate),
		logger:    monitoring.NewNopLogger(),
		workers:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the model the predictor scores with.
func (p *Predictor) Model() *model.Model {
	return p.model
}

// Schema returns the model's feature layout.
func (p *Predictor) Schema() *schema.ModelSchema {
	return p.model.Schema()
}

// Features returns the aligned feature vector of a record.
func (p *Predictor) Features(r types.RawEmployeeRecord) schema.Alignment {
	return p.model.Schema().Align(p.extractor.Extract(r))
}

// ScoreRecord scores one record. index is its position in the batch. It never
// panics; any failure is reported on the result.
func (p *Predictor) ScoreRecord(index int, r types.RawEmployeeRecord) (res RecordResult) {
	res.Index = index
	id := EmployeeID(index, r)

	defer func() {
		if v := recover(); v != nil {
			res.Result = nil
			res.Err = &RecordError{
				Index:      index,
				EmployeeID: id,
				Category:   apperrors.CategoryInternal,
				Message:    fmt.Sprintf("panic while scoring: %v", v),
			}
		}
	}()

	if r == nil {
		res.Err = &RecordError{
			Index:      index,
			EmployeeID: id,
			Category:   apperrors.CategoryValidation,
			Message:    "record is not a JSON object",
		}
		return res
	}

	al := p.Features(r)
	res.Missing, res.Dropped = al.Missing, al.Dropped

	pred, err := p.model.Predict(al.Vector)
	if err != nil {
		res.Err = recordError(index, id, err)
		return res
	}

	v := Interpret(pred.Class, pred.BurnoutProbability)
	res.Result = &EmployeeResult{
		EmployeeID:           id,
		Prediction:           pred.Class,
		BurnoutProbability:   round(pred.BurnoutProbability, 4),
		NoBurnoutProbability: round(pred.NoBurnoutProbability, 4),
		Confidence:           round(pred.Confidence, 4),
		Status:               v.Status,
		Recommendation:       v.Recommendation,
		Color:                v.Color,
	}
	return res
}

// EmployeeID is the full name when present, otherwise a positional label.
func EmployeeID(index int, r types.RawEmployeeRecord) string {
	if name, ok := r.String(types.FieldFullName); ok {
		return name
	}
	return fmt.Sprintf("Сотрудник_%d", index+1)
}

func recordError(index int, id string, err error) *RecordError {
	appErr := apperrors.ToAppError(err)
	return &RecordError{
		Index:      index,
		EmployeeID: id,
		Category:   appErr.Category,
		Message:    appErr.Error(),
	}
}
