package schema

import (
	"sort"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
)

// FeatureVector is a record laid out in schema order.
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Alignment is the aligned vector plus the drift observed while aligning.
type Alignment struct {
	Vector FeatureVector
	// Missing are schema names the record did not produce; they were set to 0.
	Missing []string
	// Dropped are record features the schema does not know.
	Dropped []string
}

// Drifted reports whether the record and the schema disagreed.
func (a Alignment) Drifted() bool {
	return len(a.Missing) > 0 || len(a.Dropped) > 0
}

// Align lays rec out in schema order: missing names become 0.0, unknown
// features are dropped. It never fails.
func (s *ModelSchema) Align(rec features.Record) Alignment {
	values := make([]float64, len(s.Names))
	var missing []string

	for i, name := range s.Names {
		v, ok := rec[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		values[i] = v
	}

	var dropped []string
	for name := range rec {
		if _, ok := s.index[name]; !ok {
			dropped = append(dropped, name)
		}
	}
	sort.Strings(dropped)

	return Alignment{
		Vector:  FeatureVector{Names: append([]string(nil), s.Names...), Values: values},
		Missing: missing,
		Dropped: dropped,
	}
}

// Decode recovers the name to value mapping of a vector.
func Decode(v FeatureVector) features.Record {
	out := make(features.Record, len(v.Names))
	for i, name := range v.Names {
		if i < len(v.Values) {
			out[name] = v.Values[i]
		}
	}
	return out
}
