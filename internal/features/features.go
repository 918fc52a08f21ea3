package features

import (
	"time"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// Feature names shared by the dataset writer and the model schema.
const (
	NameAge          = "возраст"
	NameGender       = "пол"
	NameExperience   = "Стаж_месяцы"
	KPIPrefix        = "KPI_"
	NameKPIFilled    = "KPI_заполнено_показателей"
	NameKPIStability = "KPI_стабильность"
	NameKPIMin       = "KPI_мин"
	NameKPIMax       = "KPI_макс"
	NameKPIRange     = "KPI_размах"
	NameKPITrend     = "KPI_тренд"
	NameKPILast      = "KPI_последний"
	NameVacation     = "Отпуск_месяцев_назад"
	NameSickLeave    = "Больничный"
	NameReprimand    = "Выговор"
	NameAttestation  = "Прохождение аттестации"
	NameActivities   = "Участие в активностях"
	NameTraining     = "Обучение"
	NameManager      = "Руководитель"
)

// Record is an assembled, unordered feature mapping.
type Record map[string]float64

// Extractor runs the normalizer, KPI statistics and categorical encoder and
// merges their outputs into one Record.
type Extractor struct {
	normalizer *Normalizer
	encoder    *Encoder
	convention Convention
}

// NewExtractor wires the three stages around one vocabulary and convention.
func NewExtractor(vocab *Vocabulary, convention Convention, referenceDate time.Time) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Extractor{
		normalizer: NewNormalizer(vocab, convention, referenceDate),
		encoder:    NewEncoder(vocab),
		convention: convention,
	}
}

// Convention returns the convention features are produced under.
func (x *Extractor) Convention() Convention {
	return x.convention
}

// Normalizer exposes the field normalizer.
func (x *Extractor) Normalizer() *Normalizer {
	return x.normalizer
}

// Extract turns a raw record into features.
func (x *Extractor) Extract(r types.RawEmployeeRecord) Record {
	n := x.normalizer.Normalize(r)
	return x.Assemble(n)
}

// Assemble builds the feature mapping from an already normalized record.
func (x *Extractor) Assemble(n NormalizedRecord) Record {
	c := x.convention
	out := make(Record, 64)

	out[NameAge] = scale(n.Age, c.AgeScale)
	out[NameGender] = n.Gender
	out[NameExperience] = scale(n.ExperienceMonths, c.ExperienceScale)

	for i, month := range types.KPIMonths {
		v := DefaultKPI
		if i < len(n.KPI) {
			v = n.KPI[i]
		}
		out[KPIPrefix+month] = v
	}

	st := c.Scale(ComputeKPIStats(n.KPI))
	out[NameKPIFilled] = st.FillCount
	out[NameKPIStability] = st.Stability
	out[NameKPIMin] = st.Min
	out[NameKPIMax] = st.Max
	out[NameKPIRange] = st.Range
	out[NameKPITrend] = st.Trend
	out[NameKPILast] = st.Last

	out[NameVacation] = scale(n.VacationMonthsAgo, c.VacationScale)

	for _, f := range BinaryFields {
		v, ok := n.Binary[f.Name]
		if !ok {
			v = f.Default
		}
		out[f.Name] = v
	}

	for k, v := range x.encoder.EncodeCity(n.City) {
		out[k] = v
	}
	for k, v := range x.encoder.EncodePosition(n.Position) {
		out[k] = v
	}
	return out
}

// FeatureNames is the canonical column order written by the dataset
// preparation pipeline. The fallback model schema is this list.
func (x *Extractor) FeatureNames() []string {
	return FeatureNames(x.encoder.vocab)
}

// FeatureNames returns the canonical column order for vocab.
func FeatureNames(vocab *Vocabulary) []string {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	enc := NewEncoder(vocab)

	names := []string{NameAge, NameGender, NameExperience}
	for _, month := range types.KPIMonths {
		names = append(names, KPIPrefix+month)
	}
	names = append(names,
		NameKPIFilled, NameKPIStability, NameKPIMin, NameKPIMax,
		NameKPIRange, NameKPITrend, NameKPILast,
		NameVacation,
	)
	for _, f := range BinaryFields {
		names = append(names, f.Name)
	}
	names = append(names, enc.CityNames()...)
	names = append(names, enc.PositionNames()...)
	return names
}
