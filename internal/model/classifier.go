package model

import (
	"math"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
)

// Classifier kinds.
const (
	KindLinearSVC = "linear_svc"
	KindLogistic  = "logistic"
)

// Classifier is a linear binary classifier. For linear_svc the probability
// comes from Platt scaling of the decision value; for logistic it is the
// sigmoid of the decision value.
type Classifier struct {
	Kind         string    `json:"kind"`
	Coef         []float64 `json:"coef"`
	Intercept    float64   `json:"intercept"`
	ProbA        float64   `json:"prob_a,omitempty"`
	ProbB        float64   `json:"prob_b,omitempty"`
	FeatureNames []string  `json:"feature_names,omitempty"`
}

// Decision returns w·x + b.
func (c *Classifier) Decision(x []float64) (float64, error) {
	if len(x) != len(c.Coef) {
		return 0, apperrors.NewSchemaMismatchError("classifier", len(c.Coef), len(x))
	}
	f := c.Intercept
	for i, w := range c.Coef {
		f += w * x[i]
	}
	return f, nil
}

// PredictProba returns [P(class 0), P(class 1)].
func (c *Classifier) PredictProba(x []float64) ([2]float64, error) {
	f, err := c.Decision(x)
	if err != nil {
		return [2]float64{}, err
	}
	p1 := c.probability(f)
	return [2]float64{1 - p1, p1}, nil
}

// Predict returns the class label.
func (c *Classifier) Predict(x []float64) (int, error) {
	f, err := c.Decision(x)
	if err != nil {
		return 0, err
	}
	return c.class(f), nil
}

func (c *Classifier) class(f float64) int {
	if c.Kind == KindLogistic {
		if sigmoid(f) >= 0.5 {
			return 1
		}
		return 0
	}
	if f > 0 {
		return 1
	}
	return 0
}

func (c *Classifier) probability(f float64) float64 {
	if c.Kind == KindLinearSVC && (c.ProbA != 0 || c.ProbB != 0) {
		return 1 / (1 + math.Exp(c.ProbA*f+c.ProbB))
	}
	return sigmoid(f)
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
