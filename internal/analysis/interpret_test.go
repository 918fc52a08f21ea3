package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name     string
		class    int
		prob     float64
		status   string
		color    string
		contains string
	}{
		{name: "burnout high", class: 1, prob: 0.91, status: StatusBurnout, color: ColorBurnout, contains: "Высокий риск"},
		{name: "burnout at 0.7 is medium", class: 1, prob: 0.7, status: StatusBurnout, color: ColorBurnout, contains: "Средний риск"},
		{name: "burnout medium", class: 1, prob: 0.55, status: StatusBurnout, color: ColorBurnout, contains: "Средний риск"},
		{name: "burnout low probability", class: 1, prob: 0.45, status: StatusBurnout, color: ColorBurnout, contains: "Возможное выгорание"},
		{name: "normal excellent", class: 0, prob: 0.1, status: StatusNormal, color: ColorNormal, contains: "Отличное состояние"},
		{name: "normal at 0.2 is good", class: 0, prob: 0.2, status: StatusNormal, color: ColorNormal, contains: "Хорошее состояние"},
		{name: "normal watch", class: 0, prob: 0.48, status: StatusNormal, color: ColorNormal, contains: "Нормальное состояние"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Interpret(tt.class, tt.prob)
			assert.Equal(t, tt.status, v.Status)
			assert.Equal(t, tt.color, v.Color)
			assert.Contains(t, v.Recommendation, tt.contains)
		})
	}
}

func TestSummarize(t *testing.T) {
	results := []EmployeeResult{{Prediction: 1}, {Prediction: 0}, {Prediction: 1}}

	s := Summarize(results, 2)
	assert.Equal(t, Summary{Total: 3, Burnout: 2, NoBurnout: 1, BurnoutPercentage: 66.67, Failed: 2}, s)

	assert.Equal(t, Summary{}, Summarize(nil, 0))
}
