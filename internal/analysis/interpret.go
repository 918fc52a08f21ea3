package analysis

import "math"

// Verdict labels.
const (
	StatusBurnout = "ВЫГОРАНИЕ"
	StatusNormal  = "НОРМА"

	ColorBurnout = "🔴"
	ColorNormal  = "🟢"
)

var (
	// positive class, checked from the highest threshold down
	burnoutBands = []band{
		{threshold: 0.7, text: "❗ Высокий риск выгорания. Требуется немедленное внимание"},
		{threshold: 0.5, text: "⚠️  Средний риск выгорания. Рекомендуется профилактика"},
	}
	burnoutDefault = "⚠️  Возможное выгорание. Рекомендуется наблюдение"

	// negative class, checked from the lowest threshold up
	normalBands = []band{
		{threshold: 0.2, text: "✅ Отличное состояние. Продолжать текущие практики"},
		{threshold: 0.4, text: "✅ Хорошее состояние. Рекомендуется профилактика"},
	}
	normalDefault = "🟡 Нормальное состояние. Рекомендуется наблюдение"
)

type band struct {
	threshold float64
	text      string
}

// Verdict is the human-readable reading of a prediction.
type Verdict struct {
	Status         string
	Recommendation string
	Color          string
}

// Interpret maps the class and burnout probability to a verdict.
func Interpret(class int, burnoutProbability float64) Verdict {
	if class == 1 {
		rec := burnoutDefault
		for _, b := range burnoutBands {
			if burnoutProbability > b.threshold {
				rec = b.text
				break
			}
		}
		return Verdict{Status: StatusBurnout, Recommendation: rec, Color: ColorBurnout}
	}

	rec := normalDefault
	for _, b := range normalBands {
		if burnoutProbability < b.threshold {
			rec = b.text
			break
		}
	}
	return Verdict{Status: StatusNormal, Recommendation: rec, Color: ColorNormal}
}

// Summarize counts verdicts over the scored results.
func Summarize(results []EmployeeResult, failed int) Summary {
	s := Summary{Total: len(results), Failed: failed}
	for _, r := range results {
		if r.Prediction == 1 {
			s.Burnout++
		}
	}
	s.NoBurnout = s.Total - s.Burnout
	if s.Total > 0 {
		s.BurnoutPercentage = round(float64(s.Burnout)/float64(s.Total)*100, 2)
	}
	return s
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
