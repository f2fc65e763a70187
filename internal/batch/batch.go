// Package batch drives per-document extraction and merges the results
// into the two cross-document datasets. Documents are isolated from each
// other: one document's failure, panic or overrun never aborts the run.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-batch/internal/fields"
	"github.com/insightdelivered/statement-batch/internal/logger"
	"github.com/insightdelivered/statement-batch/internal/models"
	"github.com/insightdelivered/statement-batch/internal/normalize"
	"github.com/insightdelivered/statement-batch/internal/txparse"
)

// Source supplies the documents of a batch. List enumerates document
// references; Load fetches one document's content and must release any
// underlying handle before returning, success or not.
type Source interface {
	List() ([]string, error)
	Load(ctx context.Context, ref string) (*models.Document, error)
}

// Processor runs a batch. Zero values fall back to sensible defaults.
type Processor struct {
	Matcher *fields.Matcher
	Policy  txparse.Policy
	// Workers bounds the number of documents processed concurrently.
	Workers int
	// DocTimeout bounds the effort spent on a single document; an
	// overrun is a hard failure for that document only.
	DocTimeout time.Duration
}

const (
	defaultWorkers    = 4
	defaultDocTimeout = 30 * time.Second
)

type docResult struct {
	account *models.Account
	txns    []models.Transaction
	outcome models.Outcome
}

// Run processes every document of src and returns the aggregate. The
// only error case is a structural failure to enumerate the batch; all
// per-document failures are recorded as outcomes instead.
func (p *Processor) Run(ctx context.Context, src Source) (*models.BatchResult, error) {
	refs, err := src.List()
	if err != nil {
		return nil, fmt.Errorf("listing batch documents: %w", err)
	}

	log := logger.FromContext(ctx)
	result := &models.BatchResult{RunID: uuid.NewString()}
	log.Info().Str("run_id", result.RunID).Int("documents", len(refs)).Msg("starting batch extraction")

	workers := p.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	// Documents are processed concurrently but re-assembled in input
	// order, so the output tables are deterministic for a given batch.
	results := make([]docResult, len(refs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ref string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.processOne(ctx, src, ref, log)
		}(i, ref)
	}
	wg.Wait()

	for _, dr := range results {
		if dr.account != nil {
			result.Accounts = append(result.Accounts, *dr.account)
		}
		result.Transactions = append(result.Transactions, dr.txns...)
		result.Outcomes = append(result.Outcomes, dr.outcome)
	}

	processed, succeeded, partial, failed := result.Summary()
	log.Info().
		Int("processed", processed).
		Int("succeeded", succeeded).
		Int("partial", partial).
		Int("failed", failed).
		Int("transactions", len(result.Transactions)).
		Msg("batch extraction finished")

	return result, nil
}

// processOne applies the per-document failure boundary: load errors,
// panics and time overruns all collapse to a Fatal outcome for this
// document alone.
func (p *Processor) processOne(ctx context.Context, src Source, ref string, log zerolog.Logger) docResult {
	timeout := p.DocTimeout
	if timeout <= 0 {
		timeout = defaultDocTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info().Str("document", ref).Msg("start")

	done := make(chan docResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fatalResult(ref, fmt.Sprintf("panic during extraction: %v", rec))
			}
		}()
		done <- p.extract(ctx, src, ref, log)
	}()

	var dr docResult
	select {
	case dr = <-done:
	case <-ctx.Done():
		dr = fatalResult(ref, "processing exceeded the per-document time budget")
	}

	switch dr.outcome.Kind {
	case models.OutcomeFatal:
		log.Warn().Str("document", ref).Str("reason", dr.outcome.Reason).Msg("fail")
	case models.OutcomePartial:
		log.Warn().Str("document", ref).Int("transactions", dr.outcome.Transactions).
			Str("reason", dr.outcome.Reason).Msg("done (partial)")
	default:
		log.Info().Str("document", ref).Int("transactions", dr.outcome.Transactions).Msg("done")
	}
	return dr
}

func fatalResult(ref, reason string) docResult {
	return docResult{outcome: models.Outcome{SourceID: ref, Kind: models.OutcomeFatal, Reason: reason}}
}

// extract runs the extraction stages for one document: fetch, then
// ProcessDocument inside this document's boundary.
func (p *Processor) extract(ctx context.Context, src Source, ref string, log zerolog.Logger) docResult {
	doc, err := src.Load(ctx, ref)
	if err != nil {
		return fatalResult(ref, fmt.Sprintf("loading document: %v", err))
	}

	acc, txns, outcome := ProcessDocument(doc, p.Matcher, p.Policy, log)
	if outcome.Kind == models.OutcomeFatal {
		return fatalResult(doc.ID, outcome.Reason)
	}
	return docResult{account: &acc, txns: txns, outcome: outcome}
}

// ProcessDocument runs header matching and transaction parsing for one
// document (concurrently, they touch disjoint data), then normalization
// and account-number tagging. It is shared by the batch driver and the
// single-document HTTP endpoint.
func ProcessDocument(doc *models.Document, matcher *fields.Matcher, policy txparse.Policy, log zerolog.Logger) (models.Account, []models.Transaction, models.Outcome) {
	if doc.Empty() {
		return models.Account{}, nil, models.Outcome{
			SourceID: doc.ID,
			Kind:     models.OutcomeFatal,
			Reason:   "document content is entirely unreadable",
		}
	}

	if matcher == nil {
		matcher = fields.Default()
	}

	var (
		acc       models.Account
		headerErr error
		parsed    txparse.Result
		wg        sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		acc, headerErr = matcher.Match(doc.ID, doc.HeaderText)
	}()
	go func() {
		defer wg.Done()
		parsed = txparse.ParseDocument(doc, policy)
	}()
	wg.Wait()

	normalize.Account(&acc)
	for i := range parsed.Transactions {
		parsed.Transactions[i].AccountNumber = acc.AccountNumber
	}
	txns := normalize.Transactions(parsed.Transactions)

	for _, idx := range normalize.BalanceViolations(txns) {
		log.Warn().Str("document", doc.ID).Int("row", idx).Msg("running balance does not follow from previous row")
	}
	if parsed.AmbiguousRows > 0 {
		log.Warn().Str("document", doc.ID).Int("rows", parsed.AmbiguousRows).Msg("rows with conflicting debit/credit kept for audit")
	}
	if parsed.DroppedRows > 0 {
		log.Warn().Str("document", doc.ID).Int("rows", parsed.DroppedRows).Msg("leading rows without a parseable date dropped")
	}

	outcome := models.Outcome{
		SourceID:     doc.ID,
		Kind:         models.OutcomeSuccess,
		Accounts:     1,
		Transactions: len(txns),
	}
	switch {
	case headerErr != nil:
		outcome.Kind = models.OutcomePartial
		outcome.Reason = headerErr.Error()
	case acc.AccountNumber == "":
		outcome.Kind = models.OutcomePartial
		outcome.Reason = "no usable account number in header"
	}

	return acc, txns, outcome
}
