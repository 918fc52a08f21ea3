package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names as they appear in spreadsheets and JSON payloads. Several fields
// have a long form used by the survey spreadsheet and a short form used after
// cleaning; lookups try every alias in order.
var (
	FieldAge         = []string{"возраст"}
	FieldGender      = []string{"пол"}
	FieldFullName    = []string{"ФИО"}
	FieldExperience  = []string{"Стаж"}
	FieldCity        = []string{"Город"}
	FieldPosition    = []string{"Должность"}
	FieldVacation    = []string{"Отпуск (когда ходил в последний раз)", "Отпуск"}
	FieldSickLeave   = []string{"Больничный (брал или нет в 2025 году)", "Больничный"}
	FieldReprimand   = []string{"Выговор (да/нет)", "Выговор"}
	FieldAttestation = []string{"Прохождение аттестации (прошел/не прошел/нет аттестации)", "Прохождение аттестации"}
	FieldActivities  = []string{"Участие в активностях корпоративных", "Участие в активностях"}
	FieldTraining    = []string{"Обучение"}
	FieldManager     = []string{"В подчиненнии сотрудники", "В подчинении сотрудники"}
	FieldTarget      = []string{"Состояние выгорания (самооценка своего состояния сотрудника)", "Состояние выгорания"}
)

// KPIMonths are the monthly KPI columns, oldest first.
var KPIMonths = []string{"июнь", "июль", "август", "сентябрь", "октябрь"}

// RawEmployeeRecord is one employee as read from a spreadsheet row or a JSON
// object. Values are strings, float64, bool, json.Number or nil.
type RawEmployeeRecord map[string]any

// Lookup returns the first non-nil value stored under any of the aliases.
func (r RawEmployeeRecord) Lookup(aliases []string) (any, bool) {
	for _, name := range aliases {
		if v, ok := r[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the value under aliases rendered as trimmed text. Empty
// strings are reported as absent.
func (r RawEmployeeRecord) String(aliases []string) (string, bool) {
	v, ok := r.Lookup(aliases)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(AsText(v))
	if s == "" {
		return "", false
	}
	return s, true
}

// Float returns the value under aliases as a float when it is numeric or a
// numeric-looking string.
func (r RawEmployeeRecord) Float(aliases []string) (float64, bool) {
	v, ok := r.Lookup(aliases)
	if !ok {
		return 0, false
	}
	return AsFloat(v)
}

// Clone returns a shallow copy; callers that need to rewrite fields work on
// the copy so the original record stays untouched.
func (r RawEmployeeRecord) Clone() RawEmployeeRecord {
	out := make(RawEmployeeRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AsText renders any raw value as text.
func AsText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// AsFloat converts numbers and numeric strings. Comma decimal separators are
// accepted. NaN and infinities are rejected.
func AsFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
