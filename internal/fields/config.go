package fields

import (
	"fmt"
	"regexp"

	"github.com/spf13/viper"
)

// Pattern sets are configuration, not code: new statement layouts are added
// by extending these lists in the config file, without touching match logic.
// Every pattern must carry exactly one capture group (two for periods).

// SetDefaults registers the built-in pattern sets on the given viper
// instance. A config file, when present, overrides them per key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("fields.account_number.patterns", []string{
		`(?i)Account\s+Number\s*[:\-]?\s*(\d+)`,
		`(?i)Account\s+No\.?\s*[:\-]?\s*(\d+)`,
		`(?i)A/c\s+No\.?\s*[:\-]?\s*(\d+)`,
	})
	// Bare candidate format used when no labeled pattern matches.
	v.SetDefault("fields.account_number.bare", `\b(\d{9,18})\b`)
	// Keyword anchoring disambiguates multiple bare candidates.
	v.SetDefault("fields.account_number.label_hint", `(?i)account|a/c`)

	v.SetDefault("fields.holder_name.patterns", []string{
		`(?i)Account\s+Holder\s+Name\s*[:\-]?\s*(.+)`,
		`(?i)Customer\s+Name\s*[:\-]?\s*(.+)`,
		`(?i)Account\s+Name\s*[:\-]?\s*(.+)`,
	})
	// Labels commonly rendered on the same line after the name.
	v.SetDefault("fields.holder_name.cut_at", []string{"Customer", "Joint Holder"})

	v.SetDefault("fields.customer_id.patterns", []string{
		`(?i)Customer\s*ID\s*[:\-]?\s*(\d+)`,
		`(?i)CIF\s*(?:No\.?)?\s*[:\-]?\s*(\d+)`,
	})

	v.SetDefault("fields.ifsc_code.patterns", []string{
		`(?i)IFSC\s+Code\s*[:\-]?\s*([A-Z0-9]+)`,
		`(?i)IFSC\s*[:\-]?\s*([A-Z]{4}0[A-Z0-9]{6})`,
	})

	v.SetDefault("fields.branch.patterns", []string{
		`(?i)Branch\s+Name\s*[:\-]?\s*(.+)`,
		`(?i)Branch\s*[:\-]?\s*(.+)`,
	})
	v.SetDefault("fields.branch.cut_at", []string{"Statement", "IFSC"})

	v.SetDefault("fields.period.patterns", []string{
		`(?i)Statement\s+Period\s*[:\-]?\s*([0-9A-Za-z\-/]+)\s+to\s+([0-9A-Za-z\-/]+)`,
		`(?i)Period\s*[:\-]?\s*([0-9A-Za-z\-/]+)\s+to\s+([0-9A-Za-z\-/]+)`,
		`(?i)From\s+([0-9A-Za-z\-/]+)\s+to\s+([0-9A-Za-z\-/]+)`,
	})
}

type fieldRule struct {
	patterns []*regexp.Regexp
	cutAt    []string
}

// Matcher holds the compiled pattern sets for all header fields.
type Matcher struct {
	accountNumber fieldRule
	bareAccount   *regexp.Regexp
	labelHint     *regexp.Regexp
	holderName    fieldRule
	customerID    fieldRule
	ifscCode      fieldRule
	branch        fieldRule
	period        fieldRule
}

// NewMatcher compiles the pattern sets registered on v into a Matcher.
func NewMatcher(v *viper.Viper) (*Matcher, error) {
	m := &Matcher{}
	var err error

	if m.accountNumber, err = compileRule(v, "fields.account_number"); err != nil {
		return nil, err
	}
	if m.bareAccount, err = compileOne(v.GetString("fields.account_number.bare")); err != nil {
		return nil, fmt.Errorf("fields.account_number.bare: %w", err)
	}
	if m.labelHint, err = compileOne(v.GetString("fields.account_number.label_hint")); err != nil {
		return nil, fmt.Errorf("fields.account_number.label_hint: %w", err)
	}
	if m.holderName, err = compileRule(v, "fields.holder_name"); err != nil {
		return nil, err
	}
	if m.customerID, err = compileRule(v, "fields.customer_id"); err != nil {
		return nil, err
	}
	if m.ifscCode, err = compileRule(v, "fields.ifsc_code"); err != nil {
		return nil, err
	}
	if m.branch, err = compileRule(v, "fields.branch"); err != nil {
		return nil, err
	}
	if m.period, err = compileRule(v, "fields.period"); err != nil {
		return nil, err
	}

	return m, nil
}

// Default returns a Matcher built from the built-in pattern sets only.
func Default() *Matcher {
	v := viper.New()
	SetDefaults(v)
	m, err := NewMatcher(v)
	if err != nil {
		// Built-in patterns are compile-tested; this cannot happen at runtime.
		panic(fmt.Sprintf("fields: default patterns failed to compile: %v", err))
	}
	return m
}

func compileRule(v *viper.Viper, key string) (fieldRule, error) {
	rule := fieldRule{cutAt: v.GetStringSlice(key + ".cut_at")}
	for _, p := range v.GetStringSlice(key + ".patterns") {
		re, err := regexp.Compile(p)
		if err != nil {
			return fieldRule{}, fmt.Errorf("%s: bad pattern %q: %w", key, p, err)
		}
		rule.patterns = append(rule.patterns, re)
	}
	return rule, nil
}

func compileOne(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}
