package writer

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-batch/internal/models"
)

const workbookName = "statements.xlsx"

// writeWorkbook renders both tables into one workbook, a sheet per
// table, with the same column order as the CSV rendition.
func (w *Writer) writeWorkbook(res *models.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, "Accounts", accountColumns, accountRows(res.Accounts)); err != nil {
		return err
	}
	if err := writeSheet(f, "Transactions", transactionColumns, transactionRows(res.Transactions)); err != nil {
		return err
	}

	// Drop the default sheet that excelize creates.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Accounts"); err == nil {
		f.SetActiveSheet(idx)
	}

	path := filepath.Join(w.OutDir, workbookName)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %q: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %q: %w", sheet, err)
	}

	writeRow := func(rowNum int, cells []string) error {
		addr, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		return f.SetSheetRow(sheet, addr, &row)
	}

	if err := writeRow(1, header); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	for i, cells := range rows {
		if err := writeRow(i+2, cells); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
