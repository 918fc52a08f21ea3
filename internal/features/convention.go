package features

import (
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// Convention names.
const (
	ConventionRaw        = "raw"
	ConventionNormalized = "normalized"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether x lies in the range.
func (r Range) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}

// Convention fixes the value semantics of the numeric features. The raw
// convention keeps natural units (years of age, months, KPI as reported); the
// normalized convention brings every feature into roughly [0,1]. A model is
// only valid for the convention it was trained under.
type Convention struct {
	Name string

	AgeScale float64

	ExperienceCap   float64 // 0 disables the cap
	ExperienceScale float64
	VacationCap     float64 // 0 disables the cap
	VacationScale   float64

	ClampKPI bool

	FillCountScale float64
	StabilityScale float64
	TrendScale     float64

	// Ranges bounds the training mean of selected features. A scaler whose
	// mean falls outside was fitted on data of a different convention.
	Ranges map[string]Range
}

// RawConvention mirrors the spreadsheet preparation pipeline.
func RawConvention() Convention {
	return Convention{
		Name:            ConventionRaw,
		AgeScale:        1,
		ExperienceScale: 1,
		VacationScale:   1,
		FillCountScale:  1,
		StabilityScale:  1,
		TrendScale:      1,
		Ranges: map[string]Range{
			NameAge:        {Min: 10, Max: 100},
			NameExperience: {Min: 0, Max: 1200},
			NameVacation:   {Min: 0, Max: 1000},
			NameKPIFilled:  {Min: 0, Max: float64(len(types.KPIMonths))},
		},
	}
}

// NormalizedConvention bounds every feature: age/100, experience capped at
// 120 months then /120, vacation capped at 24 months then /24, KPI clamped to
// [0,1], fill count /5, stability /0.5, trend /0.1.
func NormalizedConvention() Convention {
	return Convention{
		Name:            ConventionNormalized,
		AgeScale:        100,
		ExperienceCap:   120,
		ExperienceScale: 120,
		VacationCap:     24,
		VacationScale:   24,
		ClampKPI:        true,
		FillCountScale:  5,
		StabilityScale:  0.5,
		TrendScale:      0.1,
		Ranges: map[string]Range{
			NameAge:        {Min: 0, Max: 1},
			NameExperience: {Min: 0, Max: 1},
			NameVacation:   {Min: 0, Max: 1},
			NameKPIFilled:  {Min: 0, Max: 1},
		},
	}
}

// ConventionByName resolves a configured convention name.
func ConventionByName(name string) (Convention, error) {
	switch name {
	case ConventionRaw:
		return RawConvention(), nil
	case ConventionNormalized:
		return NormalizedConvention(), nil
	default:
		return Convention{}, fmt.Errorf("unknown feature convention %q (want %q or %q)", name, ConventionRaw, ConventionNormalized)
	}
}

// CheckMeans compares per-feature training means against the convention's
// ranges and returns the names that fall outside, sorted.
func (c Convention) CheckMeans(means map[string]float64) []string {
	var bad []string
	for name, r := range c.Ranges {
		m, ok := means[name]
		if !ok {
			continue
		}
		if !r.Contains(m) {
			bad = append(bad, name)
		}
	}
	sort.Strings(bad)
	return bad
}

func scale(x, divisor float64) float64 {
	if divisor == 0 || divisor == 1 {
		return x
	}
	return x / divisor
}

func capAt(x, limit float64) float64 {
	if limit > 0 && x > limit {
		return limit
	}
	return x
}
