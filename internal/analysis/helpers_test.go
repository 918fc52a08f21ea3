package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/model"
)

// testArtifact scores overdue vacations and a weak last KPI as burnout.
func testArtifact() *model.Artifact {
	names := features.FeatureNames(nil)
	mean := make([]float64, len(names))
	scale := make([]float64, len(names))
	coef := make([]float64, len(names))
	for i, name := range names {
		scale[i] = 1
		switch name {
		case features.NameAge:
			mean[i], scale[i] = 35, 10
		case features.NameVacation:
			mean[i], scale[i] = 8, 4
			coef[i] = 1.5
		case features.NameKPILast:
			mean[i], scale[i] = 0.8, 0.1
			coef[i] = -2
		}
	}
	return &model.Artifact{
		Convention:   features.ConventionRaw,
		FeatureNames: names,
		Scaler:       model.Scaler{Mean: mean, Scale: scale},
		Model:        model.Classifier{Kind: model.KindLinearSVC, Coef: coef, Intercept: -0.5, ProbA: -1.2},
	}
}

func testModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New(testArtifact(), features.RawConvention(), nil)
	require.NoError(t, err)
	return m
}

func testPredictor(t *testing.T, opts ...Option) *Predictor {
	t.Helper()
	return NewPredictor(testModel(t), nil, features.DefaultReferenceDate, opts...)
}
