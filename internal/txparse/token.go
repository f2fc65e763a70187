package txparse

import (
	"regexp"
	"strings"
)

// Date token shapes seen across statement layouts. Classification is
// lexical: a token may look like a date yet fail calendar validation
// (e.g. "31-02-2024"); such rows keep the raw value and are not dropped.
var (
	// DD-MM-YYYY or DD/MM/YYYY (also 2-digit day/month)
	dateTokenNumeric = regexp.MustCompile(`^(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})\b`)
	// DD Mon YYYY or DD-Mon-YYYY
	dateTokenText = regexp.MustCompile(`(?i)^(\d{1,2}[\s-](?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*[\s-]\d{2,4})\b`)
	// ISO YYYY-MM-DD
	dateTokenISO = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\b`)
)

// leadingDateToken returns the date-shaped token at the start of s, or "".
func leadingDateToken(s string) string {
	s = strings.TrimSpace(s)
	for _, re := range []*regexp.Regexp{dateTokenNumeric, dateTokenText, dateTokenISO} {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}

// amountToken matches a monetary amount with optional thousands grouping
// and an optional Dr/Cr suffix marker.
var amountToken = regexp.MustCompile(`(?i)(?:₹|Rs\.?|£|\$|€)?\s*([\d,]+\.\d{2})\s*(Dr|Cr)?\b`)

// drCrSuffix matches a bare direction marker cell ("Dr", "CR", "C", "D").
var drCrSuffix = regexp.MustCompile(`(?i)^(Dr|Cr|D|C|Debit|Credit)\.?$`)
