package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// Format is an accepted input file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatOf picks the format from a file name.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", apperrors.NewValidationError("unsupported file type", name)
	}
}

// ReadFile reads records from path in whichever format its extension names.
func ReadFile(path string, opts SheetOptions) ([]types.RawEmployeeRecord, Format, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, "", err
	}

	var records []types.RawEmployeeRecord
	switch format {
	case FormatJSON:
		doc, derr := ReadJSONFile(path)
		if derr != nil {
			return nil, format, derr
		}
		records = doc.Records
	case FormatXLSX:
		records, err = ReadSpreadsheet(path, opts)
	case FormatCSV:
		records, err = ReadCSVFile(path)
	}
	if err != nil {
		return nil, format, err
	}
	return records, format, nil
}

// Read reads records of the given format from a stream.
func Read(source string, format Format, r io.Reader, opts SheetOptions) ([]types.RawEmployeeRecord, error) {
	switch format {
	case FormatJSON:
		doc, err := DecodeJSON(source, r)
		if err != nil {
			return nil, err
		}
		return doc.Records, nil
	case FormatXLSX:
		return ReadSpreadsheetFrom(source, r, opts)
	case FormatCSV:
		return ReadCSV(source, r)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported format %q", format))
	}
}
