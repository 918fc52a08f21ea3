package model

import (
	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
)

// Scaler standardizes features as (x - mean) / scale.
type Scaler struct {
	Mean           []float64 `json:"mean"`
	Scale          []float64 `json:"scale"`
	FeatureNamesIn []string  `json:"feature_names_in,omitempty"`
}

// Identity reports whether the scaler carries no parameters.
func (s *Scaler) Identity() bool {
	return len(s.Mean) == 0 && len(s.Scale) == 0
}

// Len is the number of features the scaler was fitted on.
func (s *Scaler) Len() int {
	return len(s.Mean)
}

// Transform standardizes x. A zero scale leaves the centred value unscaled.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if s.Identity() {
		return append([]float64(nil), x...), nil
	}
	if len(x) != len(s.Mean) {
		return nil, apperrors.NewSchemaMismatchError("scaler", len(s.Mean), len(x))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		d := s.Scale[i]
		if d == 0 {
			d = 1
		}
		out[i] = (v - s.Mean[i]) / d
	}
	return out, nil
}

// Means maps feature names to the fitted means.
func (s *Scaler) Means(names []string) map[string]float64 {
	out := make(map[string]float64, len(s.Mean))
	for i, name := range names {
		if i < len(s.Mean) {
			out[name] = s.Mean[i]
		}
	}
	return out
}
