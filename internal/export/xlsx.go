// Package export renders ledger records into downloadable XLSX
// workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/TAPV-Techworks/BudgetBee/internal/model"
)

const sheetName = "Income and Expenses"

var header = []any{"Date", "Type", "Amount", "Category", "Description"}

// Workbook renders income and expense rows into a single-sheet XLSX
// file and returns its bytes.
//
// Layout: header row, every income row, every expense row, one blank
// row, then a three-row summary (total income, total expenses,
// balance). Amounts are written as floats so spreadsheet formulas work
// on them; the summary is computed in decimal space first so the
// totals match the API's balance endpoint exactly.
func Workbook(incomes []model.Income, expenses []model.Expense) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet is "Sheet1"; rename instead of add+delete.
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("export: naming sheet: %w", err)
	}

	row := 1
	if err := setRow(f, row, header); err != nil {
		return nil, err
	}

	totalIncome := decimal.Zero
	for _, inc := range incomes {
		row++
		totalIncome = totalIncome.Add(inc.Amount)
		if err := setRow(f, row, []any{
			inc.Date.Format(model.DateFormat),
			"Income",
			inc.Amount.InexactFloat64(),
			inc.Category,
			"",
		}); err != nil {
			return nil, err
		}
	}

	totalExpense := decimal.Zero
	for _, exp := range expenses {
		row++
		totalExpense = totalExpense.Add(exp.Amount)
		if err := setRow(f, row, []any{
			exp.Date.Format(model.DateFormat),
			"Expense",
			exp.Amount.InexactFloat64(),
			exp.Category,
			exp.Description,
		}); err != nil {
			return nil, err
		}
	}

	// Blank spacer row between the records and the summary block.
	row += 2
	summary := []struct {
		label string
		value decimal.Decimal
	}{
		{"Total Income", totalIncome},
		{"Total Expenses", totalExpense},
		{"Balance", totalIncome.Sub(totalExpense)},
	}
	for _, s := range summary {
		if err := setRow(f, row, []any{s.label, "", s.value.InexactFloat64()}); err != nil {
			return nil, err
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: building cell reference: %w", err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("export: writing row %d: %w", row, err)
	}
	return nil
}
