package features

import "math"

// StabilityFallback is reported when the series has fewer than two values.
const StabilityFallback = 0.1

// KPISeries is the monthly KPI history, oldest first, gaps already defaulted.
type KPISeries []float64

// KPIStats are the summary features derived from a KPISeries.
type KPIStats struct {
	FillCount float64
	Stability float64
	Min       float64
	Max       float64
	Range     float64
	Trend     float64
	Last      float64
}

// ComputeKPIStats derives the summary features in natural units.
func ComputeKPIStats(s KPISeries) KPIStats {
	if len(s) == 0 {
		return KPIStats{Stability: StabilityFallback, Last: DefaultKPI}
	}

	st := KPIStats{
		Min:  s[0],
		Max:  s[0],
		Last: s[len(s)-1],
	}
	for _, v := range s {
		if v > 0 {
			st.FillCount++
		}
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	st.Range = st.Max - st.Min
	st.Stability = stdDev(s)
	st.Trend = Trend(s)
	return st
}

// Trend is the ordinary least squares slope of the series against positions
// 0..n-1. Fewer than two points, or a degenerate fit, yields 0.
func Trend(s KPISeries) float64 {
	n := len(s)
	if n < 2 {
		return 0
	}

	meanX := float64(n-1) / 2
	meanY := mean(s)

	var sxx, sxy float64
	for i, y := range s {
		dx := float64(i) - meanX
		sxx += dx * dx
		sxy += dx * (y - meanY)
	}
	if sxx == 0 {
		return 0
	}
	slope := sxy / sxx
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0
	}
	return slope
}

// Scale applies the convention's divisors to the stats that need them.
func (c Convention) Scale(st KPIStats) KPIStats {
	st.FillCount = scale(st.FillCount, c.FillCountScale)
	st.Stability = scale(st.Stability, c.StabilityScale)
	st.Trend = scale(st.Trend, c.TrendScale)
	return st
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return StabilityFallback
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	sd := math.Sqrt(ss / float64(len(xs)))
	if math.IsNaN(sd) {
		return StabilityFallback
	}
	return sd
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
