// Package txparse converts a document's table grids, or its flat text
// lines when table extraction degraded, into an ordered sequence of raw
// transaction candidates. It never fails a document: unusable rows are
// skipped or folded into narrations, and a document that yields zero
// transactions is a legitimate outcome.
package txparse

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/insightdelivered/statement-batch/internal/models"
	"github.com/insightdelivered/statement-batch/internal/normalize"
)

// Policy carries the configurable parsing decisions.
type Policy struct {
	// PreferCreditOnConflict controls the malformed-source case where a
	// row populates both debit and credit: when true the credit is kept
	// if the debit parses to zero; rows with two non-zero amounts are
	// always flagged ambiguous. The upstream rule for such rows is not
	// settled, so this stays configuration rather than a constant.
	PreferCreditOnConflict bool
}

// PolicyFromConfig reads the parser policy keys from v.
func PolicyFromConfig(v *viper.Viper) Policy {
	return Policy{PreferCreditOnConflict: v.GetBool("parser.prefer_credit_on_conflict")}
}

// SetDefaults registers the parser policy defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("parser.prefer_credit_on_conflict", true)
}

// Result is the outcome of parsing one document's rows.
type Result struct {
	Transactions []models.Transaction
	// DroppedRows counts leading rows discarded because they carried no
	// parseable date and had no predecessor to continue.
	DroppedRows int
	// AmbiguousRows counts rows flagged for conflicting debit/credit signals.
	AmbiguousRows int
}

// ParseDocument produces the document's raw transaction candidates in
// original order. Table grids are preferred; flat text lines are the
// fallback. Pure in-memory transform, no I/O.
func ParseDocument(doc *models.Document, p Policy) Result {
	var res Result
	for _, grid := range doc.Tables {
		parseGrid(grid, doc.ID, p, &res)
	}
	if len(res.Transactions) == 0 && len(doc.Lines) > 0 {
		parseLines(doc.Lines, doc.ID, p, &res)
	}
	return res
}

// appendContinuation folds a dateless row into the previous record's
// narration with a single-space join, or drops it when there is no
// previous record (leading noise).
func appendContinuation(res *Result, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(res.Transactions) == 0 {
		res.DroppedRows++
		return
	}
	last := &res.Transactions[len(res.Transactions)-1]
	if last.Narration == "" {
		last.Narration = text
	} else {
		last.Narration += " " + text
	}
}

// resolveDirection fills DrCr, Debit and Credit on txn from the parsed
// debit/credit cells (nil means the cell was empty). A row with both
// cells populated is malformed source: with PreferCreditOnConflict the
// zero-valued side is discarded, otherwise, and always when both values
// are non-zero, the row is flagged ambiguous and rawRow is preserved in
// the narration for audit.
func resolveDirection(txn *models.Transaction, debit, credit *decimal.Decimal, p Policy, rawRow string, res *Result) {
	switch {
	case debit != nil && credit == nil:
		txn.Debit, txn.DrCr = debit, models.Debit
	case credit != nil && debit == nil:
		txn.Credit, txn.DrCr = credit, models.Credit
	case debit != nil && credit != nil:
		if !p.PreferCreditOnConflict {
			markAmbiguous(txn, rawRow, res)
			return
		}
		switch {
		case debit.IsZero() && !credit.IsZero():
			txn.Credit, txn.DrCr = credit, models.Credit
		case credit.IsZero() && !debit.IsZero():
			txn.Debit, txn.DrCr = debit, models.Debit
		default:
			markAmbiguous(txn, rawRow, res)
		}
	}
}

func markAmbiguous(txn *models.Transaction, rawRow string, res *Result) {
	txn.Ambiguous = true
	txn.Debit, txn.Credit = nil, nil
	txn.DrCr = ""
	if rawRow != "" {
		txn.Narration = rawRow
	}
	res.AmbiguousRows++
}

// directionFromBalance infers debit/credit from the running-balance delta
// against the previous row. Used when the source gives a single unsigned
// amount column with no marker.
func directionFromBalance(amount, balance, prevBalance *decimal.Decimal) models.DrCr {
	if amount == nil || balance == nil || prevBalance == nil {
		return ""
	}
	if balance.LessThan(*prevBalance) {
		return models.Debit
	}
	return models.Credit
}

// setDatedFields assigns the transaction date from a lexical date token:
// parseable dates populate TxnDate, calendar-invalid ones keep the raw
// string for diagnostics.
func setDatedFields(txn *models.Transaction, dateToken string) {
	if parsed := normalize.ParseDate(dateToken); parsed != nil {
		txn.TxnDate = parsed
	} else {
		txn.RawDate = dateToken
	}
}
