// Package export writes processed invoice rows to XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/haulcraft/invoicemill/internal/expand"
	"github.com/haulcraft/invoicemill/internal/pipeline"
)

const sheetName = "Entry Lines"

// Columns in output order. CalcWtNet is the distributed net weight.
var header = []string{
	"Product No", "ValueUSD", "HTSCode", "MID", "CalcWtNet",
	"Qty1", "Qty2", "DecTypeCd", "Material", "232 Status",
	"CountryOfMelt", "CountryOfCast", "CountryOfSmelt", "SmeltFlag",
}

type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write renders one workbook per processing result set. Row order follows
// the result order, which is the expansion order of the source invoices.
func (w *Writer) Write(path string, results []*pipeline.ProcessingResult) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("failed to close workbook", "error", err)
		}
	}()

	f.SetSheetName("Sheet1", sheetName)
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		endCol, _ := excelize.ColumnNumberToName(len(header))
		_ = f.SetCellStyle(sheetName, "A1", endCol+"1", styleID)
	}

	line := 2
	rows := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, r := range res.Rows {
			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				return fmt.Errorf("row %d: %w", line, err)
			}
			if err := f.SetSheetRow(sheetName, cell, rowValues(r)); err != nil {
				return fmt.Errorf("write row %d: %w", line, err)
			}
			line++
			rows++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("workbook written", "path", path, "rows", rows)
	return nil
}

func rowValues(r expand.Row) *[]interface{} {
	smelt := ""
	if r.SmeltFlag {
		smelt = "Y"
	}
	vals := []interface{}{
		r.PartNumber,
		r.ValueUSD.InexactFloat64(),
		r.HTSCode,
		r.MID,
		r.WeightKG,
		floatCell(r.Qty1),
		floatCell(r.Qty2),
		r.DeclarationCode,
		string(r.Material),
		r.ProgramFlag,
		r.CountryOfMelt,
		r.CountryOfCast,
		r.CountryOfSmelt,
		smelt,
	}
	return &vals
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
