package fields

import (
	"errors"
	"strings"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// ErrEmptyHeader is returned when the header region carries no text at
// all. The caller records the document as a partial, not a batch failure.
var ErrEmptyHeader = errors.New("header region is empty")

// Match extracts a partially-populated Account from the raw header text
// of one document. Each field matches independently: a field with no
// match stays empty, it never blocks the others. Match is pure; the only
// error case is a completely empty header.
func (m *Matcher) Match(sourceID, headerText string) (models.Account, error) {
	acc := models.Account{SourceID: sourceID}
	if strings.TrimSpace(headerText) == "" {
		return acc, ErrEmptyHeader
	}

	acc.AccountNumber = m.matchAccountNumber(headerText)
	acc.HolderName = m.holderName.match(headerText)
	acc.CustomerID = m.customerID.match(headerText)
	acc.IFSCCode = strings.ToUpper(m.ifscCode.match(headerText))
	acc.Branch = m.branch.match(headerText)
	acc.RawPeriodFrom, acc.RawPeriodTo = m.matchPeriod(headerText)

	return acc, nil
}

// matchAccountNumber prefers label-anchored patterns; when none match it
// falls back to bare plausible-format candidates, picking the one closest
// to a label keyword, or the first candidate if no label appears.
func (m *Matcher) matchAccountNumber(text string) string {
	if got := m.accountNumber.match(text); got != "" {
		return got
	}
	if m.bareAccount == nil {
		return ""
	}

	candidates := m.bareAccount.FindAllStringSubmatchIndex(text, -1)
	if len(candidates) == 0 {
		return ""
	}

	var labels [][]int
	if m.labelHint != nil {
		labels = m.labelHint.FindAllStringIndex(text, -1)
	}
	if len(labels) == 0 {
		c := candidates[0]
		return text[c[2]:c[3]]
	}

	best, bestDist := candidates[0], -1
	for _, c := range candidates {
		for _, l := range labels {
			d := c[2] - l[1]
			if d < 0 {
				d = l[0] - c[3]
			}
			if d < 0 {
				d = 0
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = c, d
			}
		}
	}
	return text[best[2]:best[3]]
}

func (m *Matcher) matchPeriod(text string) (from, to string) {
	for _, re := range m.period.patterns {
		if sm := re.FindStringSubmatch(text); sm != nil && len(sm) >= 3 {
			return strings.TrimSpace(sm[1]), strings.TrimSpace(sm[2])
		}
	}
	return "", ""
}

// match applies the rule's patterns in order; first match wins.
func (r fieldRule) match(text string) string {
	for _, re := range r.patterns {
		sm := re.FindStringSubmatch(text)
		if sm == nil || len(sm) < 2 {
			continue
		}
		got := strings.TrimSpace(sm[1])
		got = cutAtLabels(got, r.cutAt)
		if got != "" {
			return got
		}
	}
	return ""
}

// cutAtLabels trims a free-text capture at the first occurrence of a
// trailing label (e.g. "MAIN BRANCH Statement Period" → "MAIN BRANCH").
// PDF text extraction often flattens side-by-side header cells into one line.
func cutAtLabels(s string, labels []string) string {
	for _, label := range labels {
		if idx := strings.Index(s, label); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
