package dataset

import (
	"math"
	"sort"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
)

// madScale makes the MAD a consistent estimator of the standard deviation
// for normal data.
const madScale = 1.4826

// FeatureProfile holds robust location and spread of one column.
type FeatureProfile struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	MAD    float64 `json:"mad"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Profile summarizes a prepared dataset column by column.
type Profile struct {
	Convention string           `json:"convention"`
	Features   []FeatureProfile `json:"features"`
	// OutOfRange lists columns whose mean falls outside the convention's
	// declared range. A non-empty list means the table was built under a
	// different convention than the one named.
	OutOfRange []string `json:"out_of_range,omitempty"`

	index map[string]int
}

// Outlier is a single cell far from its column's median.
type Outlier struct {
	EmployeeID string  `json:"employee_id"`
	Feature    string  `json:"feature"`
	Value      float64 `json:"value"`
	Z          float64 `json:"z"`
}

// NewProfile computes per-column statistics of ds and checks the column
// means against conv.
func NewProfile(ds *Dataset, conv features.Convention) *Profile {
	p := &Profile{
		Convention: conv.Name,
		Features:   make([]FeatureProfile, 0, len(ds.FeatureColumns)),
		index:      make(map[string]int, len(ds.FeatureColumns)),
	}
	means := make(map[string]float64, len(ds.FeatureColumns))
	column := make([]float64, len(ds.Rows))

	for _, name := range ds.FeatureColumns {
		for i, row := range ds.Rows {
			column[i] = row.Features[name]
		}
		fp := FeatureProfile{
			Name:   name,
			Mean:   mean(column),
			Median: median(column),
			MAD:    mad(column),
		}
		if len(column) > 0 {
			fp.Min, fp.Max = column[0], column[0]
			for _, v := range column[1:] {
				fp.Min = math.Min(fp.Min, v)
				fp.Max = math.Max(fp.Max, v)
			}
		}
		p.index[name] = len(p.Features)
		p.Features = append(p.Features, fp)
		means[name] = fp.Mean
	}

	if len(ds.Rows) > 0 {
		p.OutOfRange = conv.CheckMeans(means)
	}
	return p
}

// Feature returns the profile of one column.
func (p *Profile) Feature(name string) (FeatureProfile, bool) {
	i, ok := p.index[name]
	if !ok {
		return FeatureProfile{}, false
	}
	return p.Features[i], true
}

// RobustZ computes asinh((x - median)/(1.4826*MAD)) for the named column.
// The asinh keeps heavy tails readable.
func (p *Profile) RobustZ(name string, x float64) float64 {
	fp, ok := p.Feature(name)
	if !ok {
		return 0
	}
	s := madScale * fp.MAD
	if s == 0 {
		s = 1
	}
	return math.Asinh((x - fp.Median) / s)
}

// Outliers returns every cell of ds whose robust z-score exceeds threshold
// in magnitude, ordered by descending |z|. Constant and one-hot columns
// have a unit MAD fallback and rarely trip.
func (p *Profile) Outliers(ds *Dataset, threshold float64) []Outlier {
	var out []Outlier
	for _, row := range ds.Rows {
		for _, name := range ds.FeatureColumns {
			v := row.Features[name]
			z := p.RobustZ(name, v)
			if math.Abs(z) > threshold {
				out = append(out, Outlier{EmployeeID: row.EmployeeID, Feature: name, Value: v, Z: z})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Z) > math.Abs(out[j].Z)
	})
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return 0.5 * (cp[mid-1] + cp[mid])
}

func mad(xs []float64) float64 {
	if len(xs) == 0 {
		return 1
	}
	m := median(xs)
	res := make([]float64, len(xs))
	for i, v := range xs {
		res[i] = math.Abs(v - m)
	}
	md := median(res)
	if md == 0 {
		return 1
	}
	return md
}
