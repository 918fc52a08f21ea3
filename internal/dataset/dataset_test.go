package dataset

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

func sampleRecords() []types.RawEmployeeRecord {
	return []types.RawEmployeeRecord{
		{
			"ФИО":                      "Иванова Мария Петровна",
			"возраст":                  28.0,
			"Стаж":                     "2 года 6 месяцев",
			"Город":                    "Казань",
			"Должность":                "Юрист",
			"В подчиненнии сотрудники": "Сотрутник",
			"Состояние выгорания (самооценка своего состояния сотрудника)": "выгорел",
		},
		{
			"ФИО":                      "Петров Олег",
			"возраст":                  45.0,
			"Стаж":                     "10 лет",
			"Город":                    "Москва",
			"В подчиненнии сотрудники": "Руководитель",
			"Состояние выгорания (самооценка своего состояния сотрудника)": "усталость",
		},
		nil,
		{
			"возраст":             33.0,
			"Состояние выгорания": "все хорошо",
		},
		{
			"возраст":             51.0,
			"Состояние выгорания": "не знаю",
		},
	}
}

func TestClean(t *testing.T) {
	raw := types.RawEmployeeRecord{"В подчиненнии сотрудники": " Сотрутник "}
	cleaned := Clean(raw)

	assert.Equal(t, "Сотрудник", cleaned["В подчиненнии сотрудники"])
	assert.Equal(t, " Сотрутник ", raw["В подчиненнии сотрудники"], "input must not be mutated")

	other := Clean(types.RawEmployeeRecord{"В подчинении сотрудники": "Руководитель"})
	assert.Equal(t, "Руководитель", other["В подчинении сотрудники"])
}

func TestPrepare(t *testing.T) {
	ds := Prepare(sampleRecords(), Options{})

	require.Len(t, ds.Rows, 4, "nil records are skipped")
	assert.True(t, ds.HasTarget)
	assert.Equal(t, features.FeatureNames(nil), ds.FeatureColumns)
	assert.Equal(t, append(features.FeatureNames(nil), TargetColumn), ds.Columns())

	first := ds.Rows[0]
	assert.Equal(t, "Иванова Мария Петровна", first.EmployeeID)
	assert.Equal(t, 30.0, first.Features[features.NameExperience])
	assert.Equal(t, 0.0, first.Features[features.NameManager])
	require.NotNil(t, first.Target)
	assert.Equal(t, TargetBurnout, *first.Target)

	require.NotNil(t, ds.Rows[1].Target)
	assert.Equal(t, TargetTired, *ds.Rows[1].Target)
	assert.Equal(t, 1.0, ds.Rows[1].Features[features.NameManager])

	assert.Equal(t, "Сотрудник_4", ds.Rows[2].EmployeeID)
	require.NotNil(t, ds.Rows[2].Target)
	assert.Equal(t, TargetFine, *ds.Rows[2].Target)

	assert.Nil(t, ds.Rows[3].Target, "unknown label")
}

func TestPrepare_BinaryTarget(t *testing.T) {
	ds := Prepare(sampleRecords(), Options{BinaryTarget: true})

	var got []int
	for _, row := range ds.Rows {
		if row.Target != nil {
			got = append(got, *row.Target)
		}
	}
	assert.Equal(t, []int{1, 0, 0}, got)
}

func TestPrepare_NormalizedConvention(t *testing.T) {
	ds := Prepare(sampleRecords(), Options{Convention: features.NormalizedConvention()})

	for _, row := range ds.Rows {
		assert.LessOrEqual(t, row.Features[features.NameAge], 1.0)
		assert.LessOrEqual(t, row.Features[features.NameExperience], 1.0)
	}
	assert.InDelta(t, 0.28, ds.Rows[0].Features[features.NameAge], 1e-12)
}

func TestPrepare_NoTarget(t *testing.T) {
	ds := Prepare([]types.RawEmployeeRecord{{"возраст": 30.0}}, Options{})

	assert.False(t, ds.HasTarget)
	assert.Equal(t, ds.FeatureColumns, ds.Columns())
	_, ok := ds.Records()[0][TargetColumn]
	assert.False(t, ok)
}

func TestStore_SaveLoadInfo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "processed")
	store := NewStore(dir)
	store.now = func() time.Time { return time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC) }

	ds := Prepare(sampleRecords(), Options{})
	saved, err := store.Save(ds, features.ConventionRaw)
	require.NoError(t, err)
	assert.Equal(t, 4, saved.Metadata.TotalRecords)
	require.NotNil(t, saved.Metadata.TargetColumn)
	assert.Equal(t, TargetColumn, *saved.Metadata.TargetColumn)

	for _, name := range []string{JSONFile, CSVFile, FeaturesFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, saved.Metadata.Columns, loaded.Metadata.Columns)
	assert.Equal(t, features.ConventionRaw, loaded.Metadata.Convention)
	assert.True(t, loaded.Metadata.Created.Equal(store.now()))
	assert.Len(t, loaded.Records, 4)

	info, err := store.Info()
	require.NoError(t, err)
	assert.Equal(t, 4, info.TotalRecords)
	assert.True(t, info.HasTarget)
	assert.Equal(t, 1, info.TargetMissing)
	assert.Equal(t, map[string]int{"0": 1, "1": 1, "2": 1}, info.TargetDistribution)

	rows := readCSV(t, filepath.Join(dir, CSVFile))
	require.Len(t, rows, 5)
	assert.Equal(t, ds.Columns(), rows[0])
	assert.Equal(t, "2", rows[1][len(rows[1])-1])
	assert.Equal(t, "", rows[4][len(rows[4])-1], "missing target is an empty cell")

	featureRows := readCSV(t, filepath.Join(dir, FeaturesFile))
	assert.Equal(t, ds.FeatureColumns, featureRows[0])
}

func TestStore_Append(t *testing.T) {
	store := NewStore(t.TempDir())

	unlabeled := Prepare([]types.RawEmployeeRecord{{"возраст": 30.0}}, Options{})
	_, err := store.Save(unlabeled, features.ConventionRaw)
	require.NoError(t, err)

	labeled := Prepare(sampleRecords()[:2], Options{})
	f, err := store.Append(labeled)
	require.NoError(t, err)

	assert.Equal(t, 3, f.Metadata.TotalRecords)
	assert.True(t, f.Metadata.HasTarget)
	assert.NotNil(t, f.Metadata.LastUpdated)
	assert.Equal(t, TargetColumn, f.Metadata.Columns[len(f.Metadata.Columns)-1])

	info, err := store.Info()
	require.NoError(t, err)
	assert.Equal(t, 3, info.TotalRecords)
	assert.Equal(t, 1, info.TargetMissing)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, info.TargetDistribution)
}

func TestStore_Errors(t *testing.T) {
	t.Run("missing dataset", func(t *testing.T) {
		_, err := NewStore(t.TempDir()).Info()
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryNotFound))
	})

	t.Run("append without dataset", func(t *testing.T) {
		_, err := NewStore(t.TempDir()).Append(Prepare(sampleRecords(), Options{}))
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryNotFound))
	})

	t.Run("corrupt json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, JSONFile), []byte("{"), 0o644))
		_, err := NewStore(dir).Load()
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryInputSource))
	})

	t.Run("feature layout differs", func(t *testing.T) {
		store := NewStore(t.TempDir())
		_, err := store.Save(Prepare(sampleRecords(), Options{}), features.ConventionRaw)
		require.NoError(t, err)

		vocab := features.NewVocabulary([]string{"Москва"}, []string{"Юрист"})
		_, err = store.Append(Prepare(sampleRecords(), Options{Vocabulary: vocab}))
		assert.True(t, apperrors.IsCategory(err, apperrors.CategorySchemaMismatch))
	})
}

func TestProfile(t *testing.T) {
	ds := Prepare(sampleRecords(), Options{})

	p := NewProfile(ds, features.RawConvention())
	assert.Empty(t, p.OutOfRange)
	require.Len(t, p.Features, len(ds.FeatureColumns))

	age, ok := p.Feature(features.NameAge)
	require.True(t, ok)
	assert.InDelta(t, (28.0+45+33+51)/4, age.Mean, 1e-12)
	assert.InDelta(t, 39.0, age.Median, 1e-12)
	assert.InDelta(t, 8.5, age.MAD, 1e-12)
	assert.Equal(t, 28.0, age.Min)
	assert.Equal(t, 51.0, age.Max)

	_, ok = p.Feature("nope")
	assert.False(t, ok)
	assert.Equal(t, 0.0, p.RobustZ("nope", 5))

	assert.InDelta(t, math.Asinh(12/(madScale*8.5)), p.RobustZ(features.NameAge, 51), 1e-12)

	// raw ages checked against the normalized convention
	wrong := NewProfile(ds, features.NormalizedConvention())
	assert.Contains(t, wrong.OutOfRange, features.NameAge)
	assert.Contains(t, wrong.OutOfRange, features.NameExperience)
}

func TestProfile_Outliers(t *testing.T) {
	records := make([]types.RawEmployeeRecord, 0, 9)
	for _, age := range []float64{30, 31, 29, 30, 32, 28, 30, 31} {
		records = append(records, types.RawEmployeeRecord{"возраст": age})
	}
	records = append(records, types.RawEmployeeRecord{"ФИО": "Сидоров Пётр", "возраст": 90.0})
	ds := Prepare(records, Options{})

	out := NewProfile(ds, features.RawConvention()).Outliers(ds, 3)
	require.NotEmpty(t, out)
	assert.Equal(t, "Сидоров Пётр", out[0].EmployeeID)
	assert.Equal(t, features.NameAge, out[0].Feature)
	assert.Greater(t, out[0].Z, 3.0)

	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, math.Abs(out[i-1].Z), math.Abs(out[i].Z))
	}
}

func TestRobustHelpers(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 1.0, mad(nil))
	assert.Equal(t, 1.0, mad([]float64{5, 5, 5}), "zero MAD falls back to 1")
	assert.Equal(t, 0.0, mean(nil))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
