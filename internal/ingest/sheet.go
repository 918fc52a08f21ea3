package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// SheetOptions selects the worksheet and the header row.
type SheetOptions struct {
	// Name of the worksheet. Empty selects the first one.
	Name string
	// HeaderRow is the zero-based row holding column labels. The survey
	// workbook carries a title line above the header.
	HeaderRow int
}

// DefaultSheetOptions matches the survey workbook layout.
func DefaultSheetOptions() SheetOptions {
	return SheetOptions{Name: "Лист1", HeaderRow: 1}
}

// ReadSpreadsheet reads records from an xlsx file.
func ReadSpreadsheet(path string, opts SheetOptions) ([]types.RawEmployeeRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewInputSourceError(path, err)
	}
	defer apperrors.SafeClose(f, "workbook")

	return readWorkbook(path, f, opts)
}

// ReadSpreadsheetFrom reads records from an xlsx stream.
func ReadSpreadsheetFrom(source string, r io.Reader, opts SheetOptions) ([]types.RawEmployeeRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewInputSourceError(source, err)
	}
	defer apperrors.SafeClose(f, "workbook")

	return readWorkbook(source, f, opts)
}

func readWorkbook(source string, f *excelize.File, opts SheetOptions) ([]types.RawEmployeeRecord, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewInputSourceError(source, fmt.Errorf("workbook has no sheets"))
	}

	sheet := opts.Name
	if sheet == "" {
		sheet = sheets[0]
	} else if !contains(sheets, sheet) {
		return nil, apperrors.NewInputSourceError(source,
			fmt.Errorf("sheet %q not found (have %s)", sheet, strings.Join(sheets, ", ")))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewInputSourceError(source, err)
	}
	return tableRecords(source, rows, opts.HeaderRow)
}

// tableRecords turns a header row and the rows below it into records. Blank
// cells are left out so they resolve to field defaults, and fully blank rows
// are skipped.
func tableRecords(source string, rows [][]string, headerRow int) ([]types.RawEmployeeRecord, error) {
	if headerRow < 0 || headerRow >= len(rows) {
		return nil, apperrors.NewInputSourceError(source,
			fmt.Errorf("header row %d is beyond the %d rows present", headerRow+1, len(rows)))
	}

	header := make([]string, len(rows[headerRow]))
	for i, h := range rows[headerRow] {
		header[i] = cleanHeader(h)
	}

	var out []types.RawEmployeeRecord
	for _, row := range rows[headerRow+1:] {
		rec := make(types.RawEmployeeRecord, len(header))
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			rec[header[i]] = typedCell(cell)
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

// typedCell returns numeric-looking cells as numbers so that, for example,
// a tenure typed as a plain month count is not mistaken for free text.
func typedCell(cell string) any {
	if f, ok := types.AsFloat(cell); ok {
		return f
	}
	return cell
}

func cleanHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.Join(strings.Fields(h), " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
