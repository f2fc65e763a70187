// Package normalize provides the idempotent cleanup applied to raw
// Account and Transaction records before aggregation: date and amount
// coercion, string canonicalization and page-break dedup.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// DateFormats is the ordered list of accepted date layouts, day-first
// primary. The first successful parse wins.
var DateFormats = []string{
	"02-01-2006",
	"02/01/2006",
	"2-1-2006",
	"2/1/2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"02 Jan 06",
	"2006-01-02",
}

// ParseDate tries the known layouts in order. Unparseable input returns
// nil so callers keep the raw string for diagnostics instead.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range DateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

var (
	// currencyPrefix is stripped before the generic cleanup: "Rs." would
	// otherwise leave a stray leading dot behind.
	currencyPrefix = regexp.MustCompile(`(?i)^(?:₹|Rs\.?|INR|£|\$|€)\s*`)
	nonAmountChars = regexp.MustCompile(`[^\d.\-]`)
)

// ParseAmount coerces a source cell like "1,23,456.78", "₹ 500.00 Cr" or
// "(250.00)" to a fixed-point decimal. Sentinel strings and empty cells
// return nil.
func ParseAmount(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "-", "--":
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	s = currencyPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = nonAmountChars.ReplaceAllString(s, "")
	if s == "" || s == "-" || s == "." {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	if negative {
		d = d.Neg()
	}
	return &d
}

var multiSpace = regexp.MustCompile(`\s+`)

// CleanString trims and collapses internal whitespace runs. An empty
// result stays empty, which is the in-memory representation of absent.
func CleanString(s string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// Account canonicalizes one header record in place: string cleanup plus
// statement-period date parsing. Idempotent.
func Account(acc *models.Account) {
	acc.AccountNumber = CleanString(acc.AccountNumber)
	acc.HolderName = CleanString(acc.HolderName)
	acc.CustomerID = CleanString(acc.CustomerID)
	acc.IFSCCode = CleanString(acc.IFSCCode)
	acc.Branch = CleanString(acc.Branch)

	if acc.PeriodFrom == nil && acc.RawPeriodFrom != "" {
		acc.PeriodFrom = ParseDate(acc.RawPeriodFrom)
	}
	if acc.PeriodTo == nil && acc.RawPeriodTo != "" {
		acc.PeriodTo = ParseDate(acc.RawPeriodTo)
	}
}

// Transactions canonicalizes a document's raw transactions and drops
// page-break duplicates: a record identical to its immediate predecessor
// on the dedup key collapses to one; identical records separated by other
// rows are legitimate repeats and kept.
func Transactions(txns []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(txns))
	for i := range txns {
		t := txns[i]
		t.Narration = CleanString(t.Narration)
		t.Reference = CleanString(t.Reference)
		t.RawDate = CleanString(t.RawDate)
		if t.TxnDate == nil && t.RawDate != "" {
			if parsed := ParseDate(t.RawDate); parsed != nil {
				t.TxnDate = parsed
				t.RawDate = ""
			}
		}
		if len(out) > 0 && sameDedupKey(&out[len(out)-1], &t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func sameDedupKey(a, b *models.Transaction) bool {
	return a.AccountNumber == b.AccountNumber &&
		sameDate(a.TxnDate, b.TxnDate) &&
		a.Narration == b.Narration &&
		sameDecimal(a.Debit, b.Debit) &&
		sameDecimal(a.Credit, b.Credit) &&
		sameDecimal(a.Balance, b.Balance)
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameDecimal(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// balanceTolerance absorbs rounding noise in the running-balance check.
var balanceTolerance = decimal.NewFromFloat(0.01)

// BalanceViolations returns the indexes of transactions whose running
// balance does not follow from the previous row's balance and this row's
// amount. The first row has no predecessor and is skipped, as are
// ambiguous rows and rows missing a balance or amount. Violations are
// reported for logging; they are never fatal.
func BalanceViolations(txns []models.Transaction) []int {
	var violations []int
	for i := 1; i < len(txns); i++ {
		prev, curr := &txns[i-1], &txns[i]
		if prev.Ambiguous || curr.Ambiguous {
			continue
		}
		if prev.Balance == nil || curr.Balance == nil {
			continue
		}
		amt := curr.Amount()
		if amt == nil {
			continue
		}

		expected := *prev.Balance
		if curr.Debit != nil {
			expected = expected.Sub(*amt)
		} else {
			expected = expected.Add(*amt)
		}
		if expected.Sub(*curr.Balance).Abs().GreaterThan(balanceTolerance) {
			violations = append(violations, i)
		}
	}
	return violations
}
