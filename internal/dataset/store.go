package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// Output file names inside the dataset directory.
const (
	JSONFile     = "dataset.json"
	CSVFile      = "dataset.csv"
	FeaturesFile = "features.csv"
)

// Metadata describes a persisted dataset.
type Metadata struct {
	Created        time.Time  `json:"created"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
	TotalRecords   int        `json:"total_records"`
	Columns        []string   `json:"columns"`
	HasTarget      bool       `json:"has_target"`
	TargetColumn   *string    `json:"target_column"`
	FeatureColumns []string   `json:"feature_columns"`
	Convention     string     `json:"convention,omitempty"`
}

// File is the layout of dataset.json.
type File struct {
	Metadata Metadata         `json:"metadata"`
	Records  []map[string]any `json:"records"`
}

// Info summarizes a stored dataset.
type Info struct {
	TotalRecords       int            `json:"total_records"`
	Columns            []string       `json:"columns"`
	HasTarget          bool           `json:"has_target"`
	TargetMissing      int            `json:"target_missing"`
	TargetDistribution map[string]int `json:"target_distribution,omitempty"`
	Metadata           Metadata       `json:"metadata"`
}

// Store persists prepared datasets as JSON plus two CSV views.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir is the dataset directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save replaces whatever is stored with ds.
func (s *Store) Save(ds *Dataset, convention string) (*File, error) {
	f := &File{
		Metadata: Metadata{
			Created:        s.now(),
			TotalRecords:   len(ds.Rows),
			Columns:        ds.Columns(),
			HasTarget:      ds.HasTarget,
			FeatureColumns: ds.FeatureColumns,
			Convention:     convention,
		},
		Records: ds.Records(),
	}
	if ds.HasTarget {
		f.Metadata.TargetColumn = targetColumn()
	}
	if err := s.write(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Append adds the rows of ds to the stored dataset. The feature columns must
// match; a dataset stored without a target gains one when ds carries labels.
func (s *Store) Append(ds *Dataset) (*File, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	if !slices.Equal(f.Metadata.FeatureColumns, ds.FeatureColumns) {
		return nil, apperrors.NewSchemaMismatchError("dataset", len(f.Metadata.FeatureColumns), len(ds.FeatureColumns))
	}

	if ds.HasTarget && !f.Metadata.HasTarget {
		for _, rec := range f.Records {
			rec[TargetColumn] = nil
		}
		f.Metadata.HasTarget = true
		f.Metadata.TargetColumn = targetColumn()
		f.Metadata.Columns = append(f.Metadata.Columns, TargetColumn)
	}

	added := ds.Records()
	for _, rec := range added {
		if f.Metadata.HasTarget {
			if _, ok := rec[TargetColumn]; !ok {
				rec[TargetColumn] = nil
			}
		}
	}
	f.Records = append(f.Records, added...)

	now := s.now()
	f.Metadata.TotalRecords = len(f.Records)
	f.Metadata.LastUpdated = &now

	if err := s.write(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads dataset.json.
func (s *Store) Load() (*File, error) {
	path := filepath.Join(s.dir, JSONFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("dataset", path)
		}
		return nil, apperrors.NewInputSourceError(path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, apperrors.NewInputSourceError(path, err)
	}
	return &f, nil
}

// Info reports record count and target statistics of the stored dataset.
func (s *Store) Info() (*Info, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	info := &Info{
		TotalRecords: len(f.Records),
		Columns:      f.Metadata.Columns,
		HasTarget:    f.Metadata.HasTarget,
		Metadata:     f.Metadata,
	}
	if !info.HasTarget {
		return info, nil
	}
	info.TargetDistribution = map[string]int{}
	for _, rec := range f.Records {
		v, ok := rec[TargetColumn]
		if !ok || v == nil {
			info.TargetMissing++
			continue
		}
		info.TargetDistribution[types.AsText(v)]++
	}
	return info, nil
}

func (s *Store) write(f *File) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return apperrors.NewInputSourceError(s.dir, err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return apperrors.NewInternalError("encoding dataset", err)
	}
	jsonPath := filepath.Join(s.dir, JSONFile)
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return apperrors.NewInputSourceError(jsonPath, err)
	}

	if err := writeCSV(filepath.Join(s.dir, CSVFile), f.Metadata.Columns, f.Records); err != nil {
		return err
	}
	return writeCSV(filepath.Join(s.dir, FeaturesFile), f.Metadata.FeatureColumns, f.Records)
}

func writeCSV(path string, columns []string, records []map[string]any) error {
	out, err := os.Create(path)
	if err != nil {
		return apperrors.NewInputSourceError(path, err)
	}
	defer apperrors.SafeClose(out, path)

	w := csv.NewWriter(out)
	if err := w.Write(columns); err != nil {
		return apperrors.NewInputSourceError(path, err)
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = types.AsText(rec[col])
		}
		if err := w.Write(row); err != nil {
			return apperrors.NewInputSourceError(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.NewInputSourceError(path, err)
	}
	return nil
}

func targetColumn() *string {
	name := TargetColumn
	return &name
}
