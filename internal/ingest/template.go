package ingest

import (
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// TemplateTitle is the line written above the header row.
const TemplateTitle = "Опрос сотрудников"

// TemplateColumns lists the survey columns in workbook order, using the long
// form of every field name.
func TemplateColumns() []string {
	cols := []string{
		types.FieldFullName[0],
		types.FieldAge[0],
		types.FieldGender[0],
		types.FieldExperience[0],
		types.FieldCity[0],
		types.FieldPosition[0],
		types.FieldManager[1],
		types.FieldVacation[0],
		types.FieldSickLeave[0],
		types.FieldReprimand[0],
		types.FieldAttestation[0],
		types.FieldActivities[0],
		types.FieldTraining[0],
	}
	return append(cols, types.KPIMonths...)
}

// WriteTemplate writes an empty survey workbook laid out the way opts reads
// it back: a title line per row above the header, then the header.
func WriteTemplate(w io.Writer, opts SheetOptions) error {
	f := excelize.NewFile()
	defer apperrors.SafeClose(f, "template workbook")

	sheet := opts.Name
	if sheet == "" {
		sheet = DefaultSheetOptions().Name
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return apperrors.NewInternalError("failed to name template sheet", err)
	}

	for row := 1; row <= opts.HeaderRow; row++ {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellStr(sheet, cell, TemplateTitle); err != nil {
			return apperrors.NewInternalError("failed to write template title", err)
		}
	}

	header := TemplateColumns()
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	cell, _ := excelize.CoordinatesToCellName(1, opts.HeaderRow+1)
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return apperrors.NewInternalError("failed to write template header", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return apperrors.NewInternalError("failed to write template workbook", err)
	}
	return nil
}
