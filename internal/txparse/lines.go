package txparse

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-batch/internal/models"
	"github.com/insightdelivered/statement-batch/internal/normalize"
)

// parseLines is the fallback path for documents whose table extraction
// degraded to flat text. Two line shapes are handled: pipe-delimited rows
// (cell boundaries survived flattening) and plain whitespace rows, where
// columns are recovered from the date token and trailing amounts.
func parseLines(lines []string, sourceID string, p Policy, res *Result) {
	inSection := false
	var prevBalance *decimal.Decimal

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if isHeaderLine(line) {
			inSection = true
			continue
		}

		// Pipe-delimited rows keep their cell boundaries; trust them over
		// the keyword filters.
		if strings.Contains(line, "|") {
			prevBalance = parsePipeRow(line, sourceID, p, prevBalance, res)
			inSection = true
			continue
		}

		if isSummaryLine(line) {
			continue
		}

		token := leadingDateToken(line)
		if token == "" {
			// Boilerplate before the transaction section is not a row
			// candidate; after it, dateless lines continue the narration.
			if inSection {
				appendContinuation(res, line)
			}
			continue
		}
		inSection = true
		prevBalance = parseTextRow(line, token, sourceID, p, prevBalance, res)
	}
}

// parsePipeRow maps pipe-separated cells positionally: date, narration,
// then right-anchored amount columns. Returns the running balance for
// delta-based direction inference on later rows.
func parsePipeRow(line, sourceID string, p Policy, prevBalance *decimal.Decimal, res *Result) *decimal.Decimal {
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}

	token := leadingDateToken(cells[0])
	if token == "" {
		appendContinuation(res, strings.Join(nonEmptyCells(cells), " "))
		return prevBalance
	}

	txn := models.Transaction{SourceID: sourceID}
	setDatedFields(&txn, token)
	if len(cells) > 1 {
		txn.Narration = cells[1]
	}

	n := len(cells)
	switch {
	case n >= 6:
		txn.Reference = cells[2]
		txn.Balance = normalize.ParseAmount(cells[n-1])
		resolveDirection(&txn, normalize.ParseAmount(cells[n-3]), normalize.ParseAmount(cells[n-2]), p, rowAudit(cells), res)
	case n == 5:
		txn.Balance = normalize.ParseAmount(cells[4])
		resolveDirection(&txn, normalize.ParseAmount(cells[2]), normalize.ParseAmount(cells[3]), p, rowAudit(cells), res)
	case n == 4:
		txn.Balance = normalize.ParseAmount(cells[3])
		resolveSingleAmount(&txn, cells[2], "", prevBalance)
	case n == 3:
		txn.Balance = normalize.ParseAmount(cells[2])
	}

	if txn.Balance != nil {
		prevBalance = txn.Balance
	}
	res.Transactions = append(res.Transactions, txn)
	return prevBalance
}

// parseTextRow recovers columns from a plain whitespace line: the date
// token anchors the left edge, trailing amount tokens anchor the right,
// and the narration is what sits between them.
func parseTextRow(line, token, sourceID string, p Policy, prevBalance *decimal.Decimal, res *Result) *decimal.Decimal {
	txn := models.Transaction{SourceID: sourceID}
	setDatedFields(&txn, token)

	rest := strings.TrimSpace(line[len(token):])
	matches := amountToken.FindAllStringSubmatchIndex(rest, -1)
	if len(matches) == 0 {
		txn.Narration = rest
		res.Transactions = append(res.Transactions, txn)
		return prevBalance
	}

	txn.Narration = strings.TrimSpace(rest[:matches[0][0]])

	type amt struct {
		value  decimal.Decimal
		marker string
	}
	var amounts []amt
	for _, m := range matches {
		v := normalize.ParseAmount(rest[m[2]:m[3]])
		if v == nil {
			continue
		}
		a := amt{value: *v}
		if m[4] >= 0 {
			a.marker = rest[m[4]:m[5]]
		}
		amounts = append(amounts, a)
	}
	if len(amounts) == 0 {
		res.Transactions = append(res.Transactions, txn)
		return prevBalance
	}

	switch len(amounts) {
	case 1:
		// A single unmarked amount on a flat line is a balance (brought
		// forward rows); a Dr/Cr marker makes it the movement instead.
		if dir := markerDirection(amounts[0].marker); dir != "" {
			setAmount(&txn, &amounts[0].value, dir)
		} else {
			txn.Balance = &amounts[0].value
		}
	case 2:
		txn.Balance = &amounts[1].value
		dir := markerDirection(amounts[0].marker)
		if dir == "" {
			dir = directionFromBalance(&amounts[0].value, txn.Balance, prevBalance)
		}
		if dir == "" {
			dir = models.Debit
		}
		setAmount(&txn, &amounts[0].value, dir)
	case 3:
		// Flattened debit + credit + balance columns.
		txn.Balance = &amounts[2].value
		resolveDirection(&txn, &amounts[0].value, &amounts[1].value, p, line, res)
	default:
		txn.Balance = &amounts[len(amounts)-1].value
		val := amounts[len(amounts)-2]
		dir := markerDirection(val.marker)
		if dir == "" {
			dir = directionFromBalance(&val.value, txn.Balance, prevBalance)
		}
		if dir == "" {
			dir = models.Debit
		}
		setAmount(&txn, &val.value, dir)
	}

	if txn.Balance != nil {
		prevBalance = txn.Balance
	}
	res.Transactions = append(res.Transactions, txn)
	return prevBalance
}

func setAmount(txn *models.Transaction, v *decimal.Decimal, dir models.DrCr) {
	if dir == models.Debit {
		txn.Debit, txn.DrCr = v, models.Debit
	} else {
		txn.Credit, txn.DrCr = v, models.Credit
	}
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "date") &&
		(strings.Contains(lower, "narration") || strings.Contains(lower, "description") ||
			strings.Contains(lower, "particulars")) &&
		strings.Contains(lower, "balance")
}

func isSummaryLine(line string) bool {
	lower := strings.ToLower(line)
	summaryKeywords := []string{
		"opening balance", "closing balance", "total debit", "total credit",
		"total withdrawal", "total deposit", "statement period", "page ",
		"continued on", "brought forward", "carried forward",
	}
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
