package features

import (
	"testing"
	"time"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
	"github.com/stretchr/testify/assert"
)

func rawNormalizer() *Normalizer {
	return NewNormalizer(DefaultVocabulary(), RawConvention(), DefaultReferenceDate)
}

func normalizedNormalizer() *Normalizer {
	return NewNormalizer(DefaultVocabulary(), NormalizedConvention(), DefaultReferenceDate)
}

func TestNewNormalizer_Defaults(t *testing.T) {
	n := NewNormalizer(nil, RawConvention(), time.Time{})

	assert.NotNil(t, n.vocab)
	assert.Equal(t, DefaultReferenceDate, n.referenceDate)
	assert.Equal(t, ConventionRaw, n.Convention().Name)
}

func TestParseExperience(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{name: "years and months", input: "1 год 3 месяца", expected: 15, ok: true},
		{name: "years only", input: "2 года", expected: 24, ok: true},
		{name: "лет form", input: "5 лет 11 месяцев", expected: 71, ok: true},
		{name: "months only", input: "6 месяцев", expected: 6, ok: true},
		{name: "no space before unit", input: "3года", expected: 36, ok: true},
		{name: "english units", input: "3 years 2 months", expected: 38, ok: true},
		{name: "capitalised", input: "1 Год", expected: 12, ok: true},
		{name: "zero years", input: "0 лет", expected: 0, ok: true},
		{name: "garbage", input: "давно", ok: false},
		{name: "bare number", input: "12", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			months, ok := ParseExperience(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, months)
		})
	}
}

func TestNormalizer_ExperienceMonths(t *testing.T) {
	tests := []struct {
		name       string
		record     types.RawEmployeeRecord
		raw        float64
		normalized float64
	}{
		{name: "absent", record: types.RawEmployeeRecord{}, raw: 24, normalized: 24},
		{name: "garbage", record: types.RawEmployeeRecord{"Стаж": "много"}, raw: 24, normalized: 24},
		{name: "nil value", record: types.RawEmployeeRecord{"Стаж": nil}, raw: 24, normalized: 24},
		{name: "text", record: types.RawEmployeeRecord{"Стаж": "1 год 3 месяца"}, raw: 15, normalized: 15},
		{name: "numeric months", record: types.RawEmployeeRecord{"Стаж": 36.0}, raw: 36, normalized: 36},
		{name: "negative number", record: types.RawEmployeeRecord{"Стаж": -4.0}, raw: 24, normalized: 24},
		{name: "long tenure is capped when normalized", record: types.RawEmployeeRecord{"Стаж": "15 лет"}, raw: 180, normalized: 120},
		{name: "unexpected type", record: types.RawEmployeeRecord{"Стаж": []string{"1 год"}}, raw: 24, normalized: 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.raw, rawNormalizer().ExperienceMonths(tt.record))
			assert.Equal(t, tt.normalized, normalizedNormalizer().ExperienceMonths(tt.record))
		})
	}
}

func TestNormalizer_ExperienceMonths_YearsMonthsProperty(t *testing.T) {
	n := rawNormalizer()
	capped := normalizedNormalizer()

	for years := 0; years <= 15; years++ {
		for months := 0; months < 12; months++ {
			if years == 0 && months == 0 {
				continue
			}
			text := itoa(years) + " лет " + itoa(months) + " месяцев"
			r := types.RawEmployeeRecord{"Стаж": text}

			expected := float64(12*years + months)
			assert.Equal(t, expected, n.ExperienceMonths(r), text)

			expectedCapped := expected
			if expectedCapped > 120 {
				expectedCapped = 120
			}
			assert.Equal(t, expectedCapped, capped.ExperienceMonths(r), text)
		}
	}
}

func TestNormalizer_VacationMonthsAgo(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		raw        float64
		normalized float64
	}{
		{name: "iso date", value: "2025-06-15", raw: 6, normalized: 6},
		{name: "dotted date", value: "15.06.2025", raw: 6, normalized: 6},
		{name: "iso with time", value: "2025-11-20 10:00:00", raw: 1, normalized: 1},
		{name: "spreadsheet short date", value: "06-15-25", raw: 6, normalized: 6},
		{name: "iso with T separator", value: "2025-09-01T08:30:00", raw: 3, normalized: 3},
		{name: "same month floors at one", value: "2025-12-10", raw: 1, normalized: 1},
		{name: "future date floors at one", value: "2026-03-01", raw: 1, normalized: 1},
		{name: "long ago is capped when normalized", value: "2023-01-01", raw: 35, normalized: 24},
		{name: "literal none", value: "нет", raw: 12, normalized: 12},
		{name: "english none", value: "None", raw: 12, normalized: 12},
		{name: "unparseable", value: "прошлым летом", raw: 12, normalized: 12},
		{name: "number", value: 45000.0, raw: 12, normalized: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := types.RawEmployeeRecord{"Отпуск (когда ходил в последний раз)": tt.value}
			assert.Equal(t, tt.raw, rawNormalizer().VacationMonthsAgo(r))
			assert.Equal(t, tt.normalized, normalizedNormalizer().VacationMonthsAgo(r))
		})
	}

	t.Run("absent", func(t *testing.T) {
		assert.Equal(t, DefaultVacationMonthsAgo, rawNormalizer().VacationMonthsAgo(types.RawEmployeeRecord{}))
	})

	t.Run("short column alias", func(t *testing.T) {
		r := types.RawEmployeeRecord{"Отпуск": "2025-10-01"}
		assert.Equal(t, 2.0, rawNormalizer().VacationMonthsAgo(r))
	})

	t.Run("custom reference date", func(t *testing.T) {
		n := NewNormalizer(nil, RawConvention(), time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
		r := types.RawEmployeeRecord{"Отпуск": "2024-07-01"}
		assert.Equal(t, 6.0, n.VacationMonthsAgo(r))
	})
}

func TestNormalizer_KPIValue(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		raw        float64
		normalized float64
	}{
		{name: "number", value: 0.9, raw: 0.9, normalized: 0.9},
		{name: "dot string", value: "0.75", raw: 0.75, normalized: 0.75},
		{name: "comma string", value: "0,6", raw: 0.6, normalized: 0.6},
		{name: "word", value: "нет", raw: 0.8, normalized: 0.8},
		{name: "above one", value: 1.2, raw: 1.2, normalized: 1},
		{name: "negative", value: -0.1, raw: -0.1, normalized: 0},
		{name: "nil", value: nil, raw: 0.8, normalized: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := types.RawEmployeeRecord{"июль": tt.value}
			assert.InDelta(t, tt.raw, rawNormalizer().KPIValue(r, "июль"), 1e-12)
			assert.InDelta(t, tt.normalized, normalizedNormalizer().KPIValue(r, "июль"), 1e-12)
		})
	}
}

func TestNormalizer_KPI_DefaultsGaps(t *testing.T) {
	r := types.RawEmployeeRecord{"июнь": 0.5, "октябрь": "0.9"}
	series := rawNormalizer().KPI(r)

	assert.Equal(t, KPISeries{0.5, 0.8, 0.8, 0.8, 0.9}, series)
}

func TestNormalizer_Gender(t *testing.T) {
	tests := []struct {
		name     string
		record   types.RawEmployeeRecord
		expected float64
	}{
		{name: "explicit feminine", record: types.RawEmployeeRecord{"пол": "жен"}, expected: 0},
		{name: "explicit masculine", record: types.RawEmployeeRecord{"пол": "муж", "ФИО": "Иванова Анна"}, expected: 1},
		{name: "inferred feminine ова", record: types.RawEmployeeRecord{"ФИО": "Иванова Анна Сергеевна"}, expected: 0},
		{name: "inferred feminine ская", record: types.RawEmployeeRecord{"ФИО": "Вишневская Ольга"}, expected: 0},
		{name: "inferred feminine ина", record: types.RawEmployeeRecord{"ФИО": "Сорокина Мария"}, expected: 0},
		{name: "inferred masculine", record: types.RawEmployeeRecord{"ФИО": "Петров Иван Ильич"}, expected: 1},
		{name: "unknown explicit falls back to name", record: types.RawEmployeeRecord{"пол": "?", "ФИО": "Смирнова Е."}, expected: 0},
		{name: "blank name", record: types.RawEmployeeRecord{"ФИО": "  "}, expected: 1},
		{name: "nothing", record: types.RawEmployeeRecord{}, expected: 1},
	}

	n := rawNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Gender(tt.record))
		})
	}
}

func TestNormalizer_Binary(t *testing.T) {
	attestation := BinaryFields[2]
	sick := BinaryFields[0]
	manager := BinaryFields[5]

	tests := []struct {
		name     string
		field    BinaryField
		record   types.RawEmployeeRecord
		expected float64
	}{
		{name: "attestation absent defaults to passed", field: attestation, record: types.RawEmployeeRecord{}, expected: 1},
		{name: "attestation failed", field: attestation, record: types.RawEmployeeRecord{"Прохождение аттестации (прошел/не прошел/нет аттестации)": "не прошел"}, expected: 0},
		{name: "attestation capitalised", field: attestation, record: types.RawEmployeeRecord{"Прохождение аттестации": "Прошел"}, expected: 1},
		{name: "attestation unmapped keeps default", field: attestation, record: types.RawEmployeeRecord{"Прохождение аттестации": "скоро"}, expected: 1},
		{name: "sick leave yes", field: sick, record: types.RawEmployeeRecord{"Больничный (брал или нет в 2025 году)": "да"}, expected: 1},
		{name: "sick leave unmapped keeps default", field: sick, record: types.RawEmployeeRecord{"Больничный": "может быть"}, expected: 0},
		{name: "manager typo", field: manager, record: types.RawEmployeeRecord{"В подчиненнии сотрудники": "Сотрутник"}, expected: 0},
		{name: "manager", field: manager, record: types.RawEmployeeRecord{"В подчинении сотрудники": "Руководитель"}, expected: 1},
		{name: "numeric flag", field: sick, record: types.RawEmployeeRecord{"Больничный": 1.0}, expected: 1},
		{name: "numeric string flag", field: sick, record: types.RawEmployeeRecord{"Больничный": "1"}, expected: 1},
		{name: "bool flag", field: sick, record: types.RawEmployeeRecord{"Больничный": true}, expected: 1},
		{name: "out of range number keeps default", field: attestation, record: types.RawEmployeeRecord{"Прохождение аттестации": 7.0}, expected: 1},
	}

	n := rawNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Binary(tt.record, tt.field))
		})
	}
}

func TestNormalizer_Normalize_Scenario(t *testing.T) {
	r := types.RawEmployeeRecord{"возраст": 25.0, "Стаж": "1 год 3 месяца"}

	raw := rawNormalizer().Normalize(r)
	assert.Equal(t, 25.0, raw.Age)
	assert.Equal(t, 15.0, raw.ExperienceMonths)
	assert.Equal(t, DefaultVacationMonthsAgo, raw.VacationMonthsAgo)
	assert.Len(t, raw.KPI, len(types.KPIMonths))
	assert.Len(t, raw.Binary, len(BinaryFields))
	assert.Empty(t, raw.City)

	norm := normalizedNormalizer().Normalize(r)
	assert.Equal(t, 25.0, norm.Age)
	assert.Equal(t, 15.0, norm.ExperienceMonths)
}

func TestNormalizer_Age(t *testing.T) {
	n := rawNormalizer()

	assert.Equal(t, 41.0, n.Age(types.RawEmployeeRecord{"возраст": "41"}))
	assert.Equal(t, DefaultAge, n.Age(types.RawEmployeeRecord{"возраст": "сорок"}))
	assert.Equal(t, DefaultAge, n.Age(types.RawEmployeeRecord{}))
	assert.Equal(t, DefaultAge, n.Age(types.RawEmployeeRecord{"возраст": -3.0}))
}

func itoa(i int) string {
	return types.AsText(i)
}
