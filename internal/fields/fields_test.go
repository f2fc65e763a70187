package fields

import (
	"errors"
	"testing"

	"github.com/spf13/viper"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

const sampleHeader = `State Bank of India
Account Holder Name: RAJESH KUMAR Customer ID: 88512345
Account Number: 30123456789
IFSC Code: SBIN0001234
Branch: MG ROAD Statement Period: 01-04-2024 to 30-04-2024`

func TestMatchFullHeader(t *testing.T) {
	m := Default()

	acc, err := m.Match("stmt1.pdf", sampleHeader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if acc.SourceID != "stmt1.pdf" {
		t.Errorf("source id: got %q", acc.SourceID)
	}
	if acc.AccountNumber != "30123456789" {
		t.Errorf("account number: got %q", acc.AccountNumber)
	}
	if acc.HolderName != "RAJESH KUMAR" {
		t.Errorf("holder name: got %q (expected the Customer label trimmed off)", acc.HolderName)
	}
	if acc.CustomerID != "88512345" {
		t.Errorf("customer id: got %q", acc.CustomerID)
	}
	if acc.IFSCCode != "SBIN0001234" {
		t.Errorf("ifsc: got %q", acc.IFSCCode)
	}
	if acc.Branch != "MG ROAD" {
		t.Errorf("branch: got %q (expected the Statement label trimmed off)", acc.Branch)
	}
	if acc.RawPeriodFrom != "01-04-2024" || acc.RawPeriodTo != "30-04-2024" {
		t.Errorf("period: got %q to %q", acc.RawPeriodFrom, acc.RawPeriodTo)
	}
}

func TestMatchMissingFieldsAreEmpty(t *testing.T) {
	m := Default()

	acc, err := m.Match("stmt2.pdf", "Some Bank\nAccount Number: 12345678901\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if acc.AccountNumber != "12345678901" {
		t.Errorf("account number: got %q", acc.AccountNumber)
	}
	for name, got := range map[string]string{
		"holder":   acc.HolderName,
		"customer": acc.CustomerID,
		"ifsc":     acc.IFSCCode,
		"branch":   acc.Branch,
	} {
		if got != "" {
			t.Errorf("%s should be empty, got %q", name, got)
		}
	}
}

func TestMatchEmptyHeader(t *testing.T) {
	m := Default()

	_, err := m.Match("stmt3.pdf", "   \n  ")
	if !errors.Is(err, ErrEmptyHeader) {
		t.Fatalf("expected ErrEmptyHeader, got %v", err)
	}
}

func TestMatchAccountNumberSynonyms(t *testing.T) {
	m := Default()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"labeled with number", "Account Number: 30123456789", "30123456789"},
		{"labeled with no", "Account No. 40123456789", "40123456789"},
		{"a/c shorthand", "A/c No: 50123456789", "50123456789"},
		{"bare candidate near label", "statement for account 60123456789 issued 2024", "60123456789"},
		{"no candidate", "no digits of plausible length here 1234", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := m.Match("x.pdf", tt.header)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if acc.AccountNumber != tt.want {
				t.Errorf("got %q, want %q", acc.AccountNumber, tt.want)
			}
		})
	}
}

func TestMatchAccountNumberPrefersLabelAnchored(t *testing.T) {
	m := Default()

	// Two plausible candidates; only the second sits next to a label keyword.
	header := "CIF ref 999988887777\nyour account 30123456789 ledger"
	acc, err := m.Match("x.pdf", header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.AccountNumber != "30123456789" {
		t.Errorf("got %q, want the label-anchored candidate", acc.AccountNumber)
	}
}

func TestMatchOneFieldNeverBlocksAnother(t *testing.T) {
	m := Default()

	// Malformed holder line, valid IFSC: the IFSC must still come through.
	acc, err := m.Match("x.pdf", "Account Holder Name:\nIFSC: HDFC0000123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.IFSCCode != "HDFC0000123" {
		t.Errorf("ifsc: got %q", acc.IFSCCode)
	}
	if acc.HolderName == "" {
		// Empty capture falls through to the next pattern or stays empty;
		// either way it must not be an error.
		t.Log("holder name empty, as expected for a malformed line")
	}
}

func TestNewMatcherRejectsBadPattern(t *testing.T) {
	v := newTestViper()
	v.Set("fields.branch.patterns", []string{"(unclosed"})
	if _, err := NewMatcher(v); err == nil {
		t.Fatal("expected compile error for bad pattern")
	}
}

func TestConfigOverridesDefaults(t *testing.T) {
	v := newTestViper()
	v.Set("fields.customer_id.patterns", []string{`(?i)Client\s+Code\s*[:\-]?\s*(\d+)`})

	m, err := NewMatcher(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc, err := m.Match("x.pdf", "Client Code: 4242")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.CustomerID != "4242" {
		t.Errorf("customer id: got %q, want override pattern to apply", acc.CustomerID)
	}
}
