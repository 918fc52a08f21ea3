package features

import "strings"

// Vocabulary holds the fixed category lists and lookup tables shared by the
// normalizer and the encoder. Build it once with DefaultVocabulary and pass
// the pointer around; nothing mutates it after construction.
type Vocabulary struct {
	Cities    []string
	Positions []string

	binary map[string]float64
	gender map[string]float64
	target map[string]int
}

var (
	defaultCities = []string{
		"Москва", "Санкт-Петербург", "Новосибирск", "Самара", "Красноярск",
		"Казань", "Омск", "Екатеринбург", "Кемерово",
	}

	defaultPositions = []string{
		"Менеджер по работе с клиентами", "Старший менеджер по работе с клиентами",
		"Курьер", "Кладовщик", "Бригадир", "Юрист", "Бухгалтер", "Кассир",
		"Логист", "Менеджер по территориальному развити.", "Разработчик бэкенд",
		"Дизайнер", "Тестировщик", "Разработчик фронт", "Руководитель проекта",
		"Руководитель отдела продаж", "Руководитель клиентсокго отдела",
		"Главный бухгалтер", "Руководитель склада", "Руководитель контактного-центра 1 линии",
		"Директор филиала", "Менеджер по продажам",
	}

	// keys are matched after lowercasing and trimming
	defaultBinary = map[string]float64{
		"да": 1, "нет": 0,
		"yes": 1, "no": 0,
		"прошел": 1, "прошёл": 1, "не прошел": 0, "не прошёл": 0,
		"не проходил": 0, "нет аттестации": 0,
		"завершена": 1, "завершено": 1, "в процессе": 0,
		"руководитель": 1, "сотрудник": 0, "сотрутник": 0,
		"true": 1, "false": 0,
	}

	defaultGender = map[string]float64{
		"муж": 1, "м": 1, "мужской": 1, "male": 1, "m": 1,
		"жен": 0, "ж": 0, "женский": 0, "female": 0, "f": 0,
	}

	defaultTarget = map[string]int{
		"все хорошо": 0,
		"всё хорошо": 0,
		"усталость":  1,
		"выгорел":    2,
	}
)

// DefaultVocabulary returns the vocabulary the production model was trained
// with.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Cities:    append([]string(nil), defaultCities...),
		Positions: append([]string(nil), defaultPositions...),
		binary:    copyTable(defaultBinary),
		gender:    copyTable(defaultGender),
		target:    copyIntTable(defaultTarget),
	}
}

// NewVocabulary builds a vocabulary with custom category lists and the
// default lookup tables. Both lists must be non-empty; the first entry of each
// is the default bucket.
func NewVocabulary(cities, positions []string) *Vocabulary {
	v := DefaultVocabulary()
	if len(cities) > 0 {
		v.Cities = append([]string(nil), cities...)
	}
	if len(positions) > 0 {
		v.Positions = append([]string(nil), positions...)
	}
	return v
}

// Binary maps a yes/no-style answer to 0 or 1.
func (v *Vocabulary) Binary(answer string) (float64, bool) {
	val, ok := v.binary[lookupKey(answer)]
	return val, ok
}

// Gender maps an explicit gender answer to 1 (masculine) or 0 (feminine).
func (v *Vocabulary) Gender(answer string) (float64, bool) {
	val, ok := v.gender[lookupKey(answer)]
	return val, ok
}

// Target maps the self-assessed burnout state to its class label.
func (v *Vocabulary) Target(answer string) (int, bool) {
	val, ok := v.target[lookupKey(answer)]
	return val, ok
}

func lookupKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func copyTable(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copyIntTable(src map[string]int) map[string]int {
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
