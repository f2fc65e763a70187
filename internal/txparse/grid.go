package txparse

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-batch/internal/models"
	"github.com/insightdelivered/statement-batch/internal/normalize"
)

// columnMap maps canonical column roles to grid column indexes. A value
// of -1 means the source table has no such column.
type columnMap struct {
	date      int
	narration int
	reference int
	drCr      int
	debit     int
	credit    int
	amount    int
	balance   int
}

func newColumnMap() columnMap {
	return columnMap{date: -1, narration: -1, reference: -1, drCr: -1, debit: -1, credit: -1, amount: -1, balance: -1}
}

// headerRowIndex scans the first rows of a grid for the transaction
// header. A header row names at least a date, a narration and a balance
// column; tables without one (summary boxes, address blocks) are skipped.
func headerRowIndex(grid [][]string) int {
	limit := len(grid)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		joined := strings.ToLower(strings.Join(grid[i], " "))
		if strings.Contains(joined, "date") &&
			(strings.Contains(joined, "narration") || strings.Contains(joined, "description") ||
				strings.Contains(joined, "particulars")) &&
			strings.Contains(joined, "balance") {
			return i
		}
	}
	return -1
}

// mapColumns assigns canonical roles to header cells by synonym. Cells
// matching nothing keep a positional colN name and are ignored.
func mapColumns(header []string) columnMap {
	cm := newColumnMap()
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(h, "date"):
			if cm.date < 0 {
				cm.date = i
			}
		case strings.Contains(h, "narration"), strings.Contains(h, "description"),
			strings.Contains(h, "particulars"):
			if cm.narration < 0 {
				cm.narration = i
			}
		case strings.Contains(h, "reference"), h == "ref", strings.Contains(h, "cheque"),
			strings.Contains(h, "chq"):
			if cm.reference < 0 {
				cm.reference = i
			}
		case strings.Contains(h, "type"):
			cm.drCr = i
		case strings.Contains(h, "debit"), strings.Contains(h, "withdrawal"):
			cm.debit = i
		case strings.Contains(h, "credit"), strings.Contains(h, "deposit"):
			cm.credit = i
		case strings.Contains(h, "balance"):
			cm.balance = i
		case strings.Contains(h, "amount"):
			cm.amount = i
		}
	}
	return cm
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseGrid appends the transactions found in one table grid to res.
// Rows before the header are ignored; rows after it are data rows when
// their date cell carries a date-shaped token, continuations otherwise.
func parseGrid(grid [][]string, sourceID string, p Policy, res *Result) {
	hdr := headerRowIndex(grid)
	if hdr < 0 {
		return
	}
	cm := mapColumns(grid[hdr])

	var prevBalance *decimal.Decimal
	for _, row := range grid[hdr+1:] {
		if emptyRow(row) {
			continue
		}

		dateCell := cell(row, cm.date)
		token := leadingDateToken(dateCell)
		if token == "" {
			appendContinuation(res, strings.Join(nonEmptyCells(row), " "))
			continue
		}

		txn := models.Transaction{SourceID: sourceID}
		setDatedFields(&txn, token)
		txn.Narration = cell(row, cm.narration)
		txn.Reference = cell(row, cm.reference)
		txn.Balance = normalize.ParseAmount(cell(row, cm.balance))

		rawRow := rowAudit(row)
		debit := normalize.ParseAmount(cell(row, cm.debit))
		credit := normalize.ParseAmount(cell(row, cm.credit))

		if cm.debit >= 0 || cm.credit >= 0 {
			resolveDirection(&txn, debit, credit, p, rawRow, res)
		} else if cm.amount >= 0 {
			resolveSingleAmount(&txn, cell(row, cm.amount), cell(row, cm.drCr), prevBalance)
		}

		if txn.Balance != nil {
			prevBalance = txn.Balance
		}
		res.Transactions = append(res.Transactions, txn)
	}
}

// resolveSingleAmount handles sources with one unsigned amount column:
// direction comes from a Dr/Cr marker (dedicated type column or amount
// suffix), falling back to the balance delta against the previous row.
func resolveSingleAmount(txn *models.Transaction, amountCell, typeCell string, prevBalance *decimal.Decimal) {
	amount := normalize.ParseAmount(amountCell)
	if amount == nil {
		return
	}
	if amount.IsNegative() {
		positive := amount.Neg()
		txn.Debit, txn.DrCr = &positive, models.Debit
		return
	}

	dir := markerDirection(typeCell)
	if dir == "" {
		dir = markerDirection(trailingMarker(amountCell))
	}
	if dir == "" {
		dir = directionFromBalance(amount, txn.Balance, prevBalance)
	}

	switch dir {
	case models.Debit:
		txn.Debit, txn.DrCr = amount, models.Debit
	case models.Credit:
		txn.Credit, txn.DrCr = amount, models.Credit
	}
}

func markerDirection(marker string) models.DrCr {
	m := drCrSuffix.FindStringSubmatch(strings.TrimSpace(marker))
	if m == nil {
		return ""
	}
	switch strings.ToLower(m[1]) {
	case "dr", "d", "debit":
		return models.Debit
	default:
		return models.Credit
	}
}

// trailingMarker returns a Dr/Cr suffix attached to an amount cell,
// e.g. "500.00 Dr" → "Dr".
func trailingMarker(amountCell string) string {
	m := amountToken.FindStringSubmatch(strings.TrimSpace(amountCell))
	if m == nil {
		return ""
	}
	return m[2]
}

func nonEmptyCells(row []string) []string {
	var out []string
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// rowAudit renders a row for the ambiguous-record audit trail.
func rowAudit(row []string) string {
	return strings.Join(nonEmptyCells(row), " | ")
}
