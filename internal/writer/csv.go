// Package writer serializes a batch result to its three artifacts: the
// accounts table, the transactions table and the run log. Table output
// is deterministic: the same batch produces byte-identical files.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-batch/internal/models"
)

const (
	// FormatCSV writes one CSV file per table.
	FormatCSV = "csv"
	// FormatXLSX writes a single workbook with one sheet per table.
	FormatXLSX = "xlsx"
)

// Column orders are fixed; downstream consumers rely on them.
var (
	accountColumns = []string{
		"pdf_file", "account_number", "holder_name", "customer_id",
		"ifsc_code", "branch", "period_from", "period_to",
	}
	transactionColumns = []string{
		"pdf_file", "account_number", "txn_date", "narration", "reference",
		"dr_cr", "debit", "credit", "balance",
	}
)

// Writer persists batch results under OutDir.
type Writer struct {
	OutDir string
	Format string // FormatCSV (default) or FormatXLSX

	// now is swappable for deterministic run-log tests.
	now func() time.Time
}

// New returns a Writer for the given output directory and format.
func New(outDir, format string) *Writer {
	if format == "" {
		format = FormatCSV
	}
	return &Writer{OutDir: outDir, Format: format, now: time.Now}
}

// Write creates or overwrites the batch artifacts. A write failure here
// is the only fatal, batch-level error of the pipeline.
func (w *Writer) Write(res *models.BatchResult) error {
	if err := os.MkdirAll(w.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %q: %w", w.OutDir, err)
	}

	switch w.Format {
	case FormatXLSX:
		if err := w.writeWorkbook(res); err != nil {
			return err
		}
	case FormatCSV, "":
		if err := w.writeCSV("accounts_all.csv", accountColumns, accountRows(res.Accounts)); err != nil {
			return err
		}
		if err := w.writeCSV("transactions_all.csv", transactionColumns, transactionRows(res.Transactions)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported output format %q", w.Format)
	}

	if err := w.writeRunLog(res); err != nil {
		return err
	}
	return w.writeFailedFiles(res)
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.OutDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	if err := writeTable(f, header, rows); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

func writeTable(out io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFailedFiles emits failed_files.csv listing hard-failed documents.
// The file is only produced when at least one document failed.
func (w *Writer) writeFailedFiles(res *models.BatchResult) error {
	var rows [][]string
	for _, o := range res.Outcomes {
		if o.Kind == models.OutcomeFatal {
			rows = append(rows, []string{o.SourceID, o.Reason})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return w.writeCSV("failed_files.csv", []string{"pdf_file", "error"}, rows)
}

// TransactionsCSV renders transactions as a standalone CSV string, for
// response payloads that carry the table inline.
func TransactionsCSV(txns []models.Transaction) (string, error) {
	var b strings.Builder
	if err := writeTable(&b, transactionColumns, transactionRows(txns)); err != nil {
		return "", err
	}
	return b.String(), nil
}

func accountRows(accounts []models.Account) [][]string {
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{
			a.SourceID,
			a.AccountNumber,
			a.HolderName,
			a.CustomerID,
			a.IFSCCode,
			a.Branch,
			formatDate(a.PeriodFrom),
			formatDate(a.PeriodTo),
		})
	}
	return rows
}

func transactionRows(txns []models.Transaction) [][]string {
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []string{
			t.SourceID,
			t.AccountNumber,
			formatDate(t.TxnDate),
			t.Narration,
			t.Reference,
			string(t.DrCr),
			formatAmount(t.Debit),
			formatAmount(t.Credit),
			formatAmount(t.Balance),
		})
	}
	return rows
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
