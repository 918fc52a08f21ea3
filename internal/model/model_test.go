package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/schema"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawArtifact builds an artifact over the canonical layout whose scaler means
// sit in the middle of the raw convention ranges.
func rawArtifact(kind string) *Artifact {
	names := features.FeatureNames(nil)
	mean := make([]float64, len(names))
	scale := make([]float64, len(names))
	coef := make([]float64, len(names))
	for i, name := range names {
		scale[i] = 1
		switch name {
		case features.NameAge:
			mean[i], scale[i] = 35, 10
		case features.NameExperience:
			mean[i], scale[i] = 48, 24
		case features.NameVacation:
			mean[i], scale[i] = 8, 4
			coef[i] = 1.5
		case features.NameKPIFilled:
			mean[i] = 4.5
		case features.NameKPILast:
			mean[i], scale[i] = 0.8, 0.1
			coef[i] = -2
		}
	}
	return &Artifact{
		Convention:   features.ConventionRaw,
		FeatureNames: names,
		Scaler:       Scaler{Mean: mean, Scale: scale},
		Model:        Classifier{Kind: kind, Coef: coef, Intercept: -0.5, ProbA: -1.7, ProbB: 0.1},
		Metrics:      map[string]float64{"f1": 0.81},
	}
}

func TestNew_ResolvesSchema(t *testing.T) {
	t.Run("artifact feature names", func(t *testing.T) {
		m, err := New(rawArtifact(KindLinearSVC), features.RawConvention(), nil)
		require.NoError(t, err)
		assert.Equal(t, schema.SourceModel, m.Schema().Source)
		assert.Equal(t, len(features.FeatureNames(nil)), m.Schema().Len())
	})

	t.Run("scaler names take priority", func(t *testing.T) {
		a := rawArtifact(KindLinearSVC)
		a.Scaler.FeatureNamesIn = append([]string(nil), a.FeatureNames...)
		m, err := New(a, features.RawConvention(), nil)
		require.NoError(t, err)
		assert.Equal(t, schema.SourceScaler, m.Schema().Source)
	})

	t.Run("fallback", func(t *testing.T) {
		a := rawArtifact(KindLogistic)
		a.FeatureNames = nil
		m, err := New(a, features.RawConvention(), nil)
		require.NoError(t, err)
		assert.Equal(t, schema.SourceFallback, m.Schema().Source)
		assert.Equal(t, KindLogistic, m.Kind())
		assert.Equal(t, 0.81, m.Metrics()["f1"])
	})
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(a *Artifact)
		convention features.Convention
	}{
		{name: "declared convention differs", mutate: func(a *Artifact) {}, convention: features.NormalizedConvention()},
		{name: "raw means under normalized convention", mutate: func(a *Artifact) { a.Convention = "" }, convention: features.NormalizedConvention()},
		{name: "unknown kind", mutate: func(a *Artifact) { a.Model.Kind = "forest" }, convention: features.RawConvention()},
		{name: "coef length", mutate: func(a *Artifact) { a.Model.Coef = a.Model.Coef[:10] }, convention: features.RawConvention()},
		{name: "scaler length", mutate: func(a *Artifact) { a.Scaler.Scale = a.Scaler.Scale[:3] }, convention: features.RawConvention()},
		{name: "nan coefficient", mutate: func(a *Artifact) { a.Model.Coef[0] = math.NaN() }, convention: features.RawConvention()},
		{name: "age mean out of range", mutate: func(a *Artifact) { a.Scaler.Mean[0] = 0.35 }, convention: features.RawConvention()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := rawArtifact(KindLinearSVC)
			tt.mutate(a)

			m, err := New(a, tt.convention, nil)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration), err.Error())
		})
	}

	t.Run("nil artifact", func(t *testing.T) {
		_, err := New(nil, features.RawConvention(), nil)
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))
	})
}

func TestNew_NormalizedArtifact(t *testing.T) {
	names := features.FeatureNames(nil)
	mean := make([]float64, len(names))
	for i := range mean {
		mean[i] = 0.5
	}
	a := &Artifact{
		Convention: features.ConventionNormalized,
		Scaler:     Scaler{Mean: mean, Scale: mean},
		Model:      Classifier{Kind: KindLogistic, Coef: make([]float64, len(names))},
	}

	_, err := New(a, features.NormalizedConvention(), nil)
	require.NoError(t, err)

	_, err = New(a, features.RawConvention(), nil)
	assert.Error(t, err)
}

func TestScaler_Transform(t *testing.T) {
	s := Scaler{Mean: []float64{1, 2, 3}, Scale: []float64{2, 0, 0.5}}

	out, err := s.Transform([]float64{3, 5, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2}, out)

	_, err = s.Transform([]float64{1, 2})
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategorySchemaMismatch))

	identity := Scaler{}
	out, err = identity.Transform([]float64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8}, out)
}

func TestClassifier(t *testing.T) {
	tests := []struct {
		name  string
		c     Classifier
		x     []float64
		class int
		p1    float64
	}{
		{name: "svc positive", c: Classifier{Kind: KindLinearSVC, Coef: []float64{1, 1}, ProbA: -2}, x: []float64{0.5, 0.5}, class: 1, p1: 1 / (1 + math.Exp(-2))},
		{name: "svc negative", c: Classifier{Kind: KindLinearSVC, Coef: []float64{1, 1}, ProbA: -2}, x: []float64{-1, 0}, class: 0, p1: 1 / (1 + math.Exp(2))},
		{name: "svc without platt uses sigmoid", c: Classifier{Kind: KindLinearSVC, Coef: []float64{2}}, x: []float64{1}, class: 1, p1: sigmoid(2)},
		{name: "logistic boundary", c: Classifier{Kind: KindLogistic, Coef: []float64{1}}, x: []float64{0}, class: 1, p1: 0.5},
		{name: "logistic negative", c: Classifier{Kind: KindLogistic, Coef: []float64{1}, Intercept: -3}, x: []float64{1}, class: 0, p1: sigmoid(-2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, err := tt.c.Predict(tt.x)
			require.NoError(t, err)
			assert.Equal(t, tt.class, class)

			proba, err := tt.c.PredictProba(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.p1, proba[1], 1e-12)
			assert.InDelta(t, 1.0, proba[0]+proba[1], 1e-12)
		})
	}

	_, err := (&Classifier{Kind: KindLogistic, Coef: []float64{1, 2}}).Predict([]float64{1})
	assert.True(t, apperrors.IsCategory(err, apperrors.CategorySchemaMismatch))
}

func TestModel_Predict(t *testing.T) {
	m, err := New(rawArtifact(KindLinearSVC), features.RawConvention(), nil)
	require.NoError(t, err)

	x := features.NewExtractor(nil, features.RawConvention(), features.DefaultReferenceDate)

	overdue := m.Schema().Align(x.Extract(types.RawEmployeeRecord{"Отпуск": "2024-01-10", "октябрь": 0.4}))
	rested := m.Schema().Align(x.Extract(types.RawEmployeeRecord{"Отпуск": "2025-11-01", "октябрь": 1.0}))

	high, err := m.Predict(overdue.Vector)
	require.NoError(t, err)
	low, err := m.Predict(rested.Vector)
	require.NoError(t, err)

	assert.Equal(t, 1, high.Class)
	assert.Equal(t, 0, low.Class)
	assert.Greater(t, high.BurnoutProbability, low.BurnoutProbability)
	for _, p := range []Prediction{high, low} {
		assert.InDelta(t, 1.0, p.BurnoutProbability+p.NoBurnoutProbability, 1e-12)
		assert.Equal(t, math.Max(p.BurnoutProbability, p.NoBurnoutProbability), p.Confidence)
	}

	_, err = m.Predict(schema.FeatureVector{Values: []float64{1, 2, 3}})
	assert.True(t, apperrors.IsCategory(err, apperrors.CategorySchemaMismatch))
}

func TestLoad(t *testing.T) {
	dir, err := os.MkdirTemp("", "model_test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nested", "model.json")
	require.NoError(t, WriteArtifact(path, rawArtifact(KindLinearSVC)))

	m, err := Load(path, features.RawConvention(), nil)
	require.NoError(t, err)
	assert.Equal(t, features.ConventionRaw, m.Convention().Name)

	_, err = Load(filepath.Join(dir, "missing.json"), features.RawConvention(), nil)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0644))
	_, err = Load(broken, features.RawConvention(), nil)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))
}
