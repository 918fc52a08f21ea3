package schema

import "github.com/ZanzyTHEbar/burnout-o-meter/internal/features"

// Source names where a schema's feature list came from.
type Source string

const (
	SourceScaler   Source = "scaler"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// ModelSchema is the ordered feature list a trained model expects.
type ModelSchema struct {
	Names  []string `json:"names"`
	Source Source   `json:"source"`

	index map[string]int
}

// New builds a schema from names. Duplicate names keep their first position.
func New(names []string, source Source) *ModelSchema {
	s := &ModelSchema{
		Names:  append([]string(nil), names...),
		Source: source,
		index:  make(map[string]int, len(names)),
	}
	for i, n := range s.Names {
		if _, dup := s.index[n]; !dup {
			s.index[n] = i
		}
	}
	return s
}

// Resolve picks the feature list attached to the scaler, then the one
// attached to the classifier, then fallback.
func Resolve(scalerNames, modelNames, fallback []string) *ModelSchema {
	switch {
	case len(scalerNames) > 0:
		return New(scalerNames, SourceScaler)
	case len(modelNames) > 0:
		return New(modelNames, SourceModel)
	default:
		return New(fallback, SourceFallback)
	}
}

// Fallback is the canonical layout the dataset preparation writes for vocab.
func Fallback(vocab *features.Vocabulary) *ModelSchema {
	return New(features.FeatureNames(vocab), SourceFallback)
}

// Len returns the number of features.
func (s *ModelSchema) Len() int {
	return len(s.Names)
}

// Index returns the column of name.
func (s *ModelSchema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}
