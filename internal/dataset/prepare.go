package dataset

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// TargetColumn is the label column written next to the features.
const TargetColumn = "Состояние выгорания"

// Burnout classes of the three-way target.
const (
	TargetFine    = 0
	TargetTired   = 1
	TargetBurnout = 2
)

// value typos seen in survey exports, per field
var valueFixes = []struct {
	aliases []string
	from    string
	to      string
}{
	{aliases: types.FieldManager, from: "Сотрутник", to: "Сотрудник"},
}

// Options controls Prepare.
type Options struct {
	Vocabulary    *features.Vocabulary
	Convention    features.Convention
	ReferenceDate time.Time
	// BinaryTarget collapses the target to burnout (1) versus everything
	// else (0).
	BinaryTarget bool
}

// Row is one prepared training row.
type Row struct {
	EmployeeID string
	Features   features.Record
	// Target is nil when the label is absent or not in the vocabulary.
	Target *int
}

// Dataset is the prepared feature table.
type Dataset struct {
	FeatureColumns []string
	HasTarget      bool
	Rows           []Row
}

// Columns is the full column order: features, then the target if present.
func (d *Dataset) Columns() []string {
	cols := append([]string(nil), d.FeatureColumns...)
	if d.HasTarget {
		cols = append(cols, TargetColumn)
	}
	return cols
}

// Records renders the rows as column name to value maps. Missing targets are
// nil so they survive as JSON null.
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, 0, len(d.Rows))
	for _, row := range d.Rows {
		rec := make(map[string]any, len(d.FeatureColumns)+1)
		for _, name := range d.FeatureColumns {
			rec[name] = row.Features[name]
		}
		if d.HasTarget {
			if row.Target != nil {
				rec[TargetColumn] = *row.Target
			} else {
				rec[TargetColumn] = nil
			}
		}
		out = append(out, rec)
	}
	return out
}

// Prepare cleans raw rows and turns them into the training feature table
// using the same extractor the predictor uses, so the column layout matches
// the fallback model schema.
func Prepare(records []types.RawEmployeeRecord, opts Options) *Dataset {
	vocab := opts.Vocabulary
	if vocab == nil {
		vocab = features.DefaultVocabulary()
	}
	ref := opts.ReferenceDate
	if ref.IsZero() {
		ref = features.DefaultReferenceDate
	}
	conv := opts.Convention
	if conv.Name == "" {
		conv = features.RawConvention()
	}
	x := features.NewExtractor(vocab, conv, ref)

	ds := &Dataset{FeatureColumns: x.FeatureNames()}
	for i, raw := range records {
		if raw == nil {
			continue
		}
		r := Clean(raw)
		if _, ok := r.Lookup(types.FieldTarget); ok {
			ds.HasTarget = true
		}
		ds.Rows = append(ds.Rows, Row{
			EmployeeID: employeeID(i, r),
			Features:   x.Extract(r),
			Target:     target(vocab, r, opts.BinaryTarget),
		})
	}
	return ds
}

// Clean returns a copy of r with known value typos fixed.
func Clean(r types.RawEmployeeRecord) types.RawEmployeeRecord {
	out := r.Clone()
	for _, fix := range valueFixes {
		for _, name := range fix.aliases {
			s, ok := out[name].(string)
			if ok && strings.TrimSpace(s) == fix.from {
				out[name] = fix.to
			}
		}
	}
	return out
}

func target(vocab *features.Vocabulary, r types.RawEmployeeRecord, binary bool) *int {
	s, ok := r.String(types.FieldTarget)
	if !ok {
		return nil
	}
	class, ok := vocab.Target(s)
	if !ok {
		return nil
	}
	if binary {
		if class == TargetBurnout {
			class = 1
		} else {
			class = 0
		}
	}
	return &class
}

func employeeID(i int, r types.RawEmployeeRecord) string {
	if name, ok := r.String(types.FieldFullName); ok {
		return name
	}
	return "Сотрудник_" + types.AsText(i+1)
}
