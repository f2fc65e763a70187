package batch

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/insightdelivered/statement-batch/internal/logger"
	"github.com/insightdelivered/statement-batch/internal/models"
	"github.com/insightdelivered/statement-batch/internal/txparse"
)

// fakeSource is an in-memory Source for exercising the batch driver
// without any files on disk.
type fakeSource struct {
	refs    []string
	listErr error
	docs    map[string]*models.Document
	loadErr map[string]error
	delay   map[string]time.Duration
	panics  map[string]bool
}

func (s *fakeSource) List() ([]string, error) { return s.refs, s.listErr }

func (s *fakeSource) Load(_ context.Context, ref string) (*models.Document, error) {
	if s.panics[ref] {
		panic("corrupt page tree")
	}
	if d := s.delay[ref]; d > 0 {
		time.Sleep(d)
	}
	if err := s.loadErr[ref]; err != nil {
		return nil, err
	}
	return s.docs[ref], nil
}

func statementDoc(id, accountNo string) *models.Document {
	return &models.Document{
		ID:         id,
		HeaderText: "Account Number: " + accountNo + "\nCustomer Name: ASHA RAO",
		Lines: []string{
			"01-04-2024 | Salary Credit | | | 50000.00 | 150000.00",
			"05-04-2024 | Rent Payment | | 15000.00 | | 135000.00",
		},
	}
}

func quietCtx() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

func TestRunIsolatesFatalDocument(t *testing.T) {
	src := &fakeSource{
		refs: []string{"a.pdf", "b.pdf", "c.pdf"},
		docs: map[string]*models.Document{
			"a.pdf": statementDoc("a.pdf", "300011112222"),
			"b.pdf": {ID: "b.pdf"},
			"c.pdf": statementDoc("c.pdf", "300033334444"),
		},
	}

	p := &Processor{}
	res, err := p.Run(quietCtx(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" {
		t.Error("expected a run ID")
	}

	processed, succeeded, partial, failed := res.Summary()
	if processed != 3 || succeeded != 2 || partial != 0 || failed != 1 {
		t.Errorf("summary = %d/%d/%d/%d, want 3/2/0/1", processed, succeeded, partial, failed)
	}

	if len(res.Accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(res.Accounts))
	}
	if res.Accounts[0].SourceID != "a.pdf" || res.Accounts[1].SourceID != "c.pdf" {
		t.Errorf("account sources = %q, %q", res.Accounts[0].SourceID, res.Accounts[1].SourceID)
	}
	if len(res.Transactions) != 4 {
		t.Errorf("got %d transactions, want 4", len(res.Transactions))
	}
	for _, txn := range res.Transactions {
		if txn.SourceID == "b.pdf" {
			t.Error("failed document leaked transactions into the batch")
		}
	}

	if got := res.Outcomes[1]; got.Kind != models.OutcomeFatal ||
		got.Reason != "document content is entirely unreadable" {
		t.Errorf("outcome for b.pdf = %q %q", got.Kind, got.Reason)
	}
}

func TestRunLoadErrorIsFatalForThatDocumentOnly(t *testing.T) {
	src := &fakeSource{
		refs: []string{"a.pdf", "b.pdf"},
		docs: map[string]*models.Document{
			"a.pdf": statementDoc("a.pdf", "300011112222"),
		},
		loadErr: map[string]error{"b.pdf": errors.New("file is encrypted")},
	}

	p := &Processor{}
	res, err := p.Run(quietCtx(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	_, succeeded, _, failed := res.Summary()
	if succeeded != 1 || failed != 1 {
		t.Errorf("succeeded=%d failed=%d, want 1/1", succeeded, failed)
	}
	if got := res.Outcomes[1].Reason; !strings.Contains(got, "loading document") ||
		!strings.Contains(got, "file is encrypted") {
		t.Errorf("reason = %q", got)
	}
}

func TestRunListErrorAbortsTheBatch(t *testing.T) {
	src := &fakeSource{listErr: errors.New("directory vanished")}

	p := &Processor{}
	if _, err := p.Run(quietCtx(), src); err == nil ||
		!strings.Contains(err.Error(), "listing batch documents") {
		t.Errorf("err = %v, want listing failure", err)
	}
}

func TestRunOrderIsDeterministicAcrossWorkers(t *testing.T) {
	refs := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
	accounts := []string{"100000000001", "100000000002", "100000000003", "100000000004", "100000000005"}

	src := &fakeSource{
		refs: refs,
		docs: map[string]*models.Document{},
		// Earlier documents finish later; output order must not change.
		delay: map[string]time.Duration{
			"a.pdf": 40 * time.Millisecond,
			"b.pdf": 20 * time.Millisecond,
		},
	}
	for i, ref := range refs {
		src.docs[ref] = statementDoc(ref, accounts[i])
	}

	p := &Processor{Workers: 3}
	res, err := p.Run(quietCtx(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Accounts) != len(refs) {
		t.Fatalf("got %d accounts, want %d", len(res.Accounts), len(refs))
	}
	for i, acc := range res.Accounts {
		if acc.SourceID != refs[i] || acc.AccountNumber != accounts[i] {
			t.Errorf("accounts[%d] = %s/%s, want %s/%s", i, acc.SourceID, acc.AccountNumber, refs[i], accounts[i])
		}
	}
	for i, out := range res.Outcomes {
		if out.SourceID != refs[i] {
			t.Errorf("outcomes[%d] = %s, want %s", i, out.SourceID, refs[i])
		}
	}
}

func TestRunTimeBudgetOverrunIsFatal(t *testing.T) {
	src := &fakeSource{
		refs: []string{"slow.pdf", "fast.pdf"},
		docs: map[string]*models.Document{
			"slow.pdf": statementDoc("slow.pdf", "300011112222"),
			"fast.pdf": statementDoc("fast.pdf", "300033334444"),
		},
		delay: map[string]time.Duration{"slow.pdf": 500 * time.Millisecond},
	}

	p := &Processor{DocTimeout: 25 * time.Millisecond}
	res, err := p.Run(quietCtx(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := res.Outcomes[0]; got.Kind != models.OutcomeFatal ||
		!strings.Contains(got.Reason, "time budget") {
		t.Errorf("slow.pdf outcome = %q %q", got.Kind, got.Reason)
	}
	if got := res.Outcomes[1].Kind; got != models.OutcomeSuccess {
		t.Errorf("fast.pdf outcome = %q, want success", got)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	src := &fakeSource{
		refs: []string{"bad.pdf", "good.pdf"},
		docs: map[string]*models.Document{
			"good.pdf": statementDoc("good.pdf", "300033334444"),
		},
		panics: map[string]bool{"bad.pdf": true},
	}

	p := &Processor{}
	res, err := p.Run(quietCtx(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := res.Outcomes[0]; got.Kind != models.OutcomeFatal ||
		!strings.Contains(got.Reason, "panic during extraction") {
		t.Errorf("bad.pdf outcome = %q %q", got.Kind, got.Reason)
	}
	if got := res.Outcomes[1].Kind; got != models.OutcomeSuccess {
		t.Errorf("good.pdf outcome = %q, want success", got)
	}
}

func TestProcessDocumentTagsTransactionsWithAccountNumber(t *testing.T) {
	doc := statementDoc("x.pdf", "300011112222")
	log := logger.NewWithWriter(io.Discard)

	acc, txns, outcome := ProcessDocument(doc, nil, txparse.Policy{PreferCreditOnConflict: true}, log)
	if outcome.Kind != models.OutcomeSuccess {
		t.Fatalf("outcome = %q %q", outcome.Kind, outcome.Reason)
	}
	if acc.AccountNumber != "300011112222" || acc.HolderName != "ASHA RAO" {
		t.Errorf("account = %+v", acc)
	}
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}
	for i, txn := range txns {
		if txn.AccountNumber != "300011112222" {
			t.Errorf("txns[%d].AccountNumber = %q", i, txn.AccountNumber)
		}
	}
	if outcome.Transactions != 2 || outcome.Accounts != 1 {
		t.Errorf("outcome counts = %d accounts, %d transactions", outcome.Accounts, outcome.Transactions)
	}
}

func TestProcessDocumentPartialOutcomes(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)

	t.Run("no account number in header", func(t *testing.T) {
		doc := statementDoc("x.pdf", "")
		doc.HeaderText = "Monthly statement for our valued customer"

		_, txns, outcome := ProcessDocument(doc, nil, txparse.Policy{}, log)
		if outcome.Kind != models.OutcomePartial {
			t.Fatalf("outcome = %q", outcome.Kind)
		}
		if outcome.Reason != "no usable account number in header" {
			t.Errorf("reason = %q", outcome.Reason)
		}
		// Transactions are still extracted, just untagged.
		if len(txns) != 2 {
			t.Errorf("got %d transactions, want 2", len(txns))
		}
	})

	t.Run("empty header region", func(t *testing.T) {
		doc := statementDoc("x.pdf", "300011112222")
		doc.HeaderText = ""

		_, txns, outcome := ProcessDocument(doc, nil, txparse.Policy{}, log)
		if outcome.Kind != models.OutcomePartial {
			t.Fatalf("outcome = %q", outcome.Kind)
		}
		if len(txns) != 2 {
			t.Errorf("got %d transactions, want 2", len(txns))
		}
	})
}
