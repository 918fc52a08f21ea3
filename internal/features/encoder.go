package features

import "strings"

// Feature name prefixes of the one-hot groups.
const (
	CityPrefix     = "Город_"
	PositionPrefix = "Должность_"
)

// Encoder one-hot encodes city and position against the vocabulary.
type Encoder struct {
	vocab *Vocabulary
}

// NewEncoder creates an encoder over vocab.
func NewEncoder(vocab *Vocabulary) *Encoder {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Encoder{vocab: vocab}
}

// EncodeCity returns one feature per vocabulary city. Unknown or empty input
// sets the first city.
func (e *Encoder) EncodeCity(city string) map[string]float64 {
	return oneHot(CityPrefix, e.vocab.Cities, city)
}

// EncodePosition returns one feature per vocabulary position. Unknown or
// empty input sets the first position.
func (e *Encoder) EncodePosition(position string) map[string]float64 {
	return oneHot(PositionPrefix, e.vocab.Positions, position)
}

// CityNames lists the city feature names in vocabulary order.
func (e *Encoder) CityNames() []string {
	return prefixed(CityPrefix, e.vocab.Cities)
}

// PositionNames lists the position feature names in vocabulary order.
func (e *Encoder) PositionNames() []string {
	return prefixed(PositionPrefix, e.vocab.Positions)
}

// oneHot sets exactly one bucket: the exact (case-sensitive) match, or the
// first entry when nothing matches.
func oneHot(prefix string, vocabulary []string, value string) map[string]float64 {
	out := make(map[string]float64, len(vocabulary))
	for _, v := range vocabulary {
		out[prefix+v] = 0
	}
	if len(vocabulary) == 0 {
		return out
	}

	value = strings.TrimSpace(value)
	for _, v := range vocabulary {
		if v == value {
			out[prefix+v] = 1
			return out
		}
	}
	out[prefix+vocabulary[0]] = 1
	return out
}

func prefixed(prefix string, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = prefix + v
	}
	return out
}
