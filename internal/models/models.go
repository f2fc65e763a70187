package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DrCr is the derived direction of a transaction. It is never taken
// verbatim from the source document.
type DrCr string

const (
	Debit  DrCr = "DEBIT"
	Credit DrCr = "CREDIT"
)

// Account holds one statement's header metadata. All fields except
// SourceID and AccountNumber are best-effort; an empty string means the
// field was absent from the document.
type Account struct {
	SourceID      string     `json:"sourceId"`
	AccountNumber string     `json:"accountNumber"`
	HolderName    string     `json:"holderName,omitempty"`
	CustomerID    string     `json:"customerId,omitempty"`
	IFSCCode      string     `json:"ifscCode,omitempty"`
	Branch        string     `json:"branch,omitempty"`
	PeriodFrom    *time.Time `json:"periodFrom,omitempty"`
	PeriodTo      *time.Time `json:"periodTo,omitempty"`

	// Raw period strings are kept when date parsing fails, for diagnostics.
	RawPeriodFrom string `json:"rawPeriodFrom,omitempty"`
	RawPeriodTo   string `json:"rawPeriodTo,omitempty"`
}

// Transaction is one ledger entry extracted from a statement.
type Transaction struct {
	SourceID      string           `json:"sourceId"`
	AccountNumber string           `json:"accountNumber"`
	TxnDate       *time.Time       `json:"txnDate,omitempty"`
	RawDate       string           `json:"rawDate,omitempty"` // retained when TxnDate is nil
	Narration     string           `json:"narration"`
	Reference     string           `json:"reference,omitempty"`
	DrCr          DrCr             `json:"drCr,omitempty"`
	Debit         *decimal.Decimal `json:"debit,omitempty"`
	Credit        *decimal.Decimal `json:"credit,omitempty"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`

	// Ambiguous marks rows with conflicting debit/credit signals. Such rows
	// keep both amounts nil and the raw row text in Narration for audit.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// Amount returns whichever of debit/credit is populated.
func (t *Transaction) Amount() *decimal.Decimal {
	if t.Debit != nil {
		return t.Debit
	}
	return t.Credit
}

// Document is the input contract with the document-conversion collaborator:
// raw header text plus either table grids or flat body lines per page.
type Document struct {
	ID         string
	HeaderText string
	Tables     [][][]string // ordered table grids, each row a slice of cells
	Lines      []string     // fallback when table extraction degraded to text
}

// Empty reports whether the document carries no usable content at all.
func (d *Document) Empty() bool {
	return d.HeaderText == "" && len(d.Tables) == 0 && len(d.Lines) == 0
}

// OutcomeKind tags the per-document processing result.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "SUCCESS"
	OutcomePartial OutcomeKind = "PARTIAL"
	OutcomeFatal   OutcomeKind = "FATAL"
)

// Outcome records what happened to a single document.
type Outcome struct {
	SourceID     string      `json:"sourceId"`
	Kind         OutcomeKind `json:"kind"`
	Accounts     int         `json:"accounts"`
	Transactions int         `json:"transactions"`
	Reason       string      `json:"reason,omitempty"`
}

// BatchResult is the aggregate returned by a batch run. It replaces any
// process-wide run state: everything a run produced lives here.
type BatchResult struct {
	RunID        string        `json:"runId"`
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
	Outcomes     []Outcome     `json:"outcomes"`
}

// Summary counts the outcomes by kind.
func (r *BatchResult) Summary() (processed, succeeded, partial, failed int) {
	for _, o := range r.Outcomes {
		processed++
		switch o.Kind {
		case OutcomeSuccess:
			succeeded++
		case OutcomePartial:
			partial++
		case OutcomeFatal:
			failed++
		}
	}
	return
}
