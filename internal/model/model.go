package model

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/schema"
)

// Prediction is the classifier output for one record.
type Prediction struct {
	Class                int     `json:"prediction"`
	BurnoutProbability   float64 `json:"burnout_probability"`
	NoBurnoutProbability float64 `json:"no_burnout_probability"`
	Confidence           float64 `json:"confidence"`
}

// Model is a validated artifact bound to its resolved schema. It is
// immutable after Load and safe for concurrent use.
type Model struct {
	artifact   *Artifact
	schema     *schema.ModelSchema
	convention features.Convention
}

// Load reads and validates the artifact at path against convention.
func Load(path string, convention features.Convention, vocab *features.Vocabulary) (*Model, error) {
	a, err := ReadArtifact(path)
	if err != nil {
		return nil, err
	}
	return New(a, convention, vocab)
}

// New validates a against convention. The schema comes from the scaler, then
// the classifier, then the canonical layout for vocab.
func New(a *Artifact, convention features.Convention, vocab *features.Vocabulary) (*Model, error) {
	if a == nil {
		return nil, apperrors.NewConfigurationError("model artifact is empty", nil)
	}
	if a.Convention != "" && a.Convention != convention.Name {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("model was trained under the %q convention but %q is configured", a.Convention, convention.Name), nil)
	}

	modelNames := a.Model.FeatureNames
	if len(modelNames) == 0 {
		modelNames = a.FeatureNames
	}
	s := schema.Resolve(a.Scaler.FeatureNamesIn, modelNames, features.FeatureNames(vocab))

	m := &Model{artifact: a, schema: s, convention: convention}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) validate() error {
	a := m.artifact
	n := m.schema.Len()

	switch a.Model.Kind {
	case KindLinearSVC, KindLogistic:
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unknown classifier kind %q", a.Model.Kind), nil)
	}

	if len(a.Model.Coef) != n {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("classifier has %d coefficients but the %s schema has %d features", len(a.Model.Coef), m.schema.Source, n), nil)
	}
	if !finite(a.Model.Coef) || !finite([]float64{a.Model.Intercept, a.Model.ProbA, a.Model.ProbB}) {
		return apperrors.NewConfigurationError("classifier parameters contain NaN or Inf", nil)
	}

	if a.Scaler.Identity() {
		return nil
	}
	if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("scaler has %d means and %d scales but the %s schema has %d features",
				len(a.Scaler.Mean), len(a.Scaler.Scale), m.schema.Source, n), nil)
	}
	if !finite(a.Scaler.Mean) || !finite(a.Scaler.Scale) {
		return apperrors.NewConfigurationError("scaler parameters contain NaN or Inf", nil)
	}

	if bad := m.convention.CheckMeans(a.Scaler.Means(m.schema.Names)); len(bad) > 0 {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("scaler means of %s are outside the %q convention ranges", strings.Join(bad, ", "), m.convention.Name), nil)
	}
	return nil
}

// Schema returns the resolved feature layout.
func (m *Model) Schema() *schema.ModelSchema {
	return m.schema
}

// Convention returns the convention the model was validated against.
func (m *Model) Convention() features.Convention {
	return m.convention
}

// Kind returns the classifier kind.
func (m *Model) Kind() string {
	return m.artifact.Model.Kind
}

// Metrics returns the evaluation metrics stored with the artifact.
func (m *Model) Metrics() map[string]float64 {
	return m.artifact.Metrics
}

// Predict scales an aligned vector and classifies it.
func (m *Model) Predict(v schema.FeatureVector) (Prediction, error) {
	x, err := m.artifact.Scaler.Transform(v.Values)
	if err != nil {
		return Prediction{}, err
	}

	class, err := m.artifact.Model.Predict(x)
	if err != nil {
		return Prediction{}, err
	}
	proba, err := m.artifact.Model.PredictProba(x)
	if err != nil {
		return Prediction{}, err
	}

	return Prediction{
		Class:                class,
		BurnoutProbability:   proba[1],
		NoBurnoutProbability: proba[0],
		Confidence:           math.Max(proba[0], proba[1]),
	}, nil
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
