package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// ReadCSVFile reads records from a CSV file whose first line is the header.
func ReadCSVFile(path string) ([]types.RawEmployeeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputSourceError(path, err)
	}
	defer apperrors.SafeClose(f, "csv file")

	return ReadCSV(path, f)
}

// ReadCSV reads records from a CSV stream. The delimiter is a tab when the
// header line has one, a semicolon when the header has semicolons but no
// commas, and a comma otherwise.
func ReadCSV(source string, r io.Reader) ([]types.RawEmployeeRecord, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, apperrors.NewInputSourceError(source, err)
	}

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(string(first))
	// Trimming would swallow the empty cells between consecutive tabs.
	reader.TrimLeadingSpace = reader.Comma != '\t'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewInputSourceError(source, fmt.Errorf("malformed CSV: %w", err))
	}
	if len(rows) == 0 {
		return nil, apperrors.NewInputSourceError(source, fmt.Errorf("empty CSV"))
	}
	return tableRecords(source, rows, 0)
}

func detectDelimiter(head string) rune {
	line := head
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	switch {
	case strings.Contains(line, "\t"):
		return '\t'
	case strings.Contains(line, ";") && !strings.Contains(line, ","):
		return ';'
	default:
		return ','
	}
}
