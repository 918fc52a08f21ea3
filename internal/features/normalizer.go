package features

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// Defaults substituted when a field is absent or cannot be parsed.
const (
	DefaultAge               = 30.0
	DefaultExperienceMonths  = 24.0
	DefaultVacationMonthsAgo = 12.0
	DefaultKPI               = 0.8
	DefaultGender            = 1.0 // masculine
)

// DefaultReferenceDate is the date vacation recency is measured from.
var DefaultReferenceDate = time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)

var (
	yearsPattern  = regexp.MustCompile(`(\d+)\s*(?:год|лет|year)`)
	monthsPattern = regexp.MustCompile(`(\d+)\s*(?:мес|month)`)

	vacationLayouts = []string{
		"2006-01-02",
		"02.01.2006",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"01-02-06", // spreadsheet date cells rendered with the default format
	}

	// feminine endings of the first token of a full name
	feminineSuffixes = []string{"вна", "ова", "ева", "ина", "ская"}

	noneAnswers = map[string]bool{"нет": true, "none": true, "-": true}
)

// BinaryField describes a yes/no-style input and its fallback.
type BinaryField struct {
	Name    string
	Aliases []string
	Default float64
}

// BinaryFields lists the binary features in feature order.
var BinaryFields = []BinaryField{
	{Name: NameSickLeave, Aliases: types.FieldSickLeave, Default: 0},
	{Name: NameReprimand, Aliases: types.FieldReprimand, Default: 0},
	{Name: NameAttestation, Aliases: types.FieldAttestation, Default: 1},
	{Name: NameActivities, Aliases: types.FieldActivities, Default: 1},
	{Name: NameTraining, Aliases: types.FieldTraining, Default: 1},
	{Name: NameManager, Aliases: types.FieldManager, Default: 0},
}

// NormalizedRecord is a raw record after field parsing. Values are in the
// units of the normalizer's convention except ExperienceMonths and
// VacationMonthsAgo, which stay in months (capped where the convention caps).
type NormalizedRecord struct {
	Age               float64
	Gender            float64
	ExperienceMonths  float64
	VacationMonthsAgo float64
	KPI               KPISeries
	Binary            map[string]float64
	City              string
	Position          string
}

// Normalizer parses raw fields into typed values. It never fails: anything
// absent, malformed or of an unexpected type resolves to a default.
type Normalizer struct {
	vocab         *Vocabulary
	convention    Convention
	referenceDate time.Time
}

// NewNormalizer creates a normalizer. A zero reference date selects
// DefaultReferenceDate.
func NewNormalizer(vocab *Vocabulary, convention Convention, referenceDate time.Time) *Normalizer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if referenceDate.IsZero() {
		referenceDate = DefaultReferenceDate
	}
	return &Normalizer{vocab: vocab, convention: convention, referenceDate: referenceDate}
}

// Convention returns the convention the normalizer applies.
func (n *Normalizer) Convention() Convention {
	return n.convention
}

// Normalize parses every field of a record.
func (n *Normalizer) Normalize(r types.RawEmployeeRecord) NormalizedRecord {
	out := NormalizedRecord{
		Age:               n.Age(r),
		Gender:            n.Gender(r),
		ExperienceMonths:  n.ExperienceMonths(r),
		VacationMonthsAgo: n.VacationMonthsAgo(r),
		KPI:               n.KPI(r),
		Binary:            make(map[string]float64, len(BinaryFields)),
	}
	for _, f := range BinaryFields {
		out.Binary[f.Name] = n.Binary(r, f)
	}
	out.City, _ = r.String(types.FieldCity)
	out.Position, _ = r.String(types.FieldPosition)
	return out
}

// Age returns the age in years.
func (n *Normalizer) Age(r types.RawEmployeeRecord) float64 {
	age, ok := r.Float(types.FieldAge)
	if !ok || age < 0 {
		return DefaultAge
	}
	return age
}

// ExperienceMonths converts the experience field to months.
func (n *Normalizer) ExperienceMonths(r types.RawEmployeeRecord) float64 {
	v, ok := r.Lookup(types.FieldExperience)
	if !ok {
		return DefaultExperienceMonths
	}

	var months float64
	switch t := v.(type) {
	case string:
		m, ok := ParseExperience(t)
		if !ok {
			return DefaultExperienceMonths
		}
		months = m
	default:
		m, ok := types.AsFloat(t)
		if !ok || m < 0 {
			return DefaultExperienceMonths
		}
		months = math.Trunc(m)
	}
	return capAt(months, n.convention.ExperienceCap)
}

// ParseExperience sums "<n> год/лет/year" and "<n> месяц/month" tokens.
// It reports false when no token is present.
func ParseExperience(s string) (float64, bool) {
	text := strings.ToLower(s)
	total := 0
	matched := false

	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		if years, err := strconv.Atoi(m[1]); err == nil {
			total += years * 12
			matched = true
		}
	}
	for _, m := range monthsPattern.FindAllStringSubmatch(text, -1) {
		if months, err := strconv.Atoi(m[1]); err == nil {
			total += months
			matched = true
		}
	}
	if !matched {
		return 0, false
	}
	return float64(total), true
}

// VacationMonthsAgo returns whole months between the last vacation and the
// reference date, at least 1.
func (n *Normalizer) VacationMonthsAgo(r types.RawEmployeeRecord) float64 {
	s, ok := r.String(types.FieldVacation)
	if !ok || noneAnswers[strings.ToLower(s)] {
		return DefaultVacationMonthsAgo
	}
	date, ok := ParseDate(s)
	if !ok {
		return DefaultVacationMonthsAgo
	}
	months := MonthsBetween(date, n.referenceDate)
	if months < 1 {
		months = 1
	}
	return capAt(float64(months), n.convention.VacationCap)
}

// ParseDate tries each accepted vacation date layout.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range vacationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MonthsBetween counts calendar months from -> to, ignoring days.
func MonthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// KPI reads the monthly KPI values, substituting DefaultKPI for gaps.
func (n *Normalizer) KPI(r types.RawEmployeeRecord) KPISeries {
	series := make(KPISeries, len(types.KPIMonths))
	for i, month := range types.KPIMonths {
		series[i] = n.KPIValue(r, month)
	}
	return series
}

// KPIValue parses one month's KPI.
func (n *Normalizer) KPIValue(r types.RawEmployeeRecord, month string) float64 {
	v, ok := r.Float([]string{month})
	if !ok {
		return DefaultKPI
	}
	if n.convention.ClampKPI {
		v = clip(v, 0, 1)
	}
	return v
}

// Gender returns 1 for masculine, 0 for feminine.
func (n *Normalizer) Gender(r types.RawEmployeeRecord) float64 {
	if s, ok := r.String(types.FieldGender); ok {
		if g, ok := n.vocab.Gender(s); ok {
			return g
		}
	}
	if name, ok := r.String(types.FieldFullName); ok {
		return InferGender(name)
	}
	return DefaultGender
}

// InferGender checks the first token of a full name for feminine endings.
func InferGender(fullName string) float64 {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return DefaultGender
	}
	first := strings.ToLower(parts[0])
	for _, suffix := range feminineSuffixes {
		if strings.HasSuffix(first, suffix) {
			return 0
		}
	}
	return DefaultGender
}

// Binary resolves a yes/no-style field through the vocabulary table.
func (n *Normalizer) Binary(r types.RawEmployeeRecord, f BinaryField) float64 {
	v, ok := r.Lookup(f.Aliases)
	if !ok {
		return f.Default
	}
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		if b, ok := n.vocab.Binary(t); ok {
			return b
		}
		if x, ok := types.AsFloat(t); ok && (x == 0 || x == 1) {
			return x
		}
		return f.Default
	default:
		if x, ok := types.AsFloat(t); ok && (x == 0 || x == 1) {
			return x
		}
		return f.Default
	}
}
