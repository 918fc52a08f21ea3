package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// Shape is the top-level layout of a JSON document.
type Shape string

const (
	ShapeObject    Shape = "object"
	ShapeEmployees Shape = "employees"
	ShapeArray     Shape = "array"
)

// EmployeesKey wraps a record list in an object.
const EmployeesKey = "employees"

// Document is a decoded JSON input. A nil entry in Records is an array
// element that was not an object.
type Document struct {
	Shape   Shape
	Records []types.RawEmployeeRecord
}

// ReadJSONFile decodes the document at path.
func ReadJSONFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewInputSourceError(path, err)
	}
	return DecodeJSON(path, bytes.NewReader(data))
}

// DecodeJSON accepts a single record, an object with an "employees" list, or
// a bare list. Numbers are kept as json.Number.
func DecodeJSON(source string, r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, apperrors.NewInputSourceError(source, fmt.Errorf("malformed JSON: %w", err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, apperrors.NewInputSourceError(source, fmt.Errorf("malformed JSON: trailing data after top-level value"))
	}

	switch v := root.(type) {
	case map[string]any:
		if list, ok := v[EmployeesKey]; ok {
			items, ok := list.([]any)
			if !ok {
				return nil, apperrors.NewUnsupportedShapeError(source, fmt.Sprintf("%q is %s, not an array", EmployeesKey, describe(list)))
			}
			return &Document{Shape: ShapeEmployees, Records: records(items)}, nil
		}
		return &Document{Shape: ShapeObject, Records: []types.RawEmployeeRecord{v}}, nil
	case []any:
		return &Document{Shape: ShapeArray, Records: records(v)}, nil
	default:
		return nil, apperrors.NewUnsupportedShapeError(source, describe(root))
	}
}

func records(items []any) []types.RawEmployeeRecord {
	out := make([]types.RawEmployeeRecord, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			out[i] = m
		}
	}
	return out
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
