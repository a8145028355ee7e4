package importer

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// RuleType classifies a sanitization rule.
type RuleType string

const (
	RuleFormat          RuleType = "format"
	RuleValidation      RuleType = "validation"
	RuleCleanup         RuleType = "cleanup"
	RuleStandardization RuleType = "standardization"
)

// Severity of a detected data-quality issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule IDs; ApplyRules runs applied rules in this fixed order.
const (
	RulePhoneFormat     = "phone-format"
	RuleAmountFormat    = "amount-format"
	RuleNameValidation  = "name-validation"
	RuleDuplicates      = "remove-duplicates"
	RuleRepaymentFormat = "repayment-standardization"
)

// Rule is a detected data-quality issue and its (possibly applied) fix.
// AffectedRecords is fixed at analysis time and not recomputed after partial
// application within the same pass.
type Rule struct {
	ID              string   `json:"id"`
	Field           string   `json:"field"`
	Type            RuleType `json:"type"`
	Description     string   `json:"description"`
	Severity        Severity `json:"severity"`
	AutoFix         bool     `json:"autoFix"`
	AffectedRecords int      `json:"affectedRecords"`
	Applied         bool     `json:"applied"`
}

// Analyzer detects data-quality issues in a mapped record set. Injected so
// tests can substitute a deterministic implementation.
type Analyzer interface {
	Analyze(ctx context.Context, records []Record) ([]Rule, error)
}

// RuleEngine is the deterministic rule-based analyzer and fixer.
type RuleEngine struct{}

// NewRuleEngine returns the standard rule engine.
func NewRuleEngine() *RuleEngine { return &RuleEngine{} }

var phoneRe = regexp.MustCompile(`^\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}$`)

var standardRepaymentTypes = map[string]bool{
	"Installment":    true,
	"Single Payment": true,
	"Open Payment":   true,
}

// Analyze runs every detection rule over the records. A rule is emitted only
// when its affected count is positive.
func (e *RuleEngine) Analyze(_ context.Context, records []Record) ([]Rule, error) {
	var rules []Rule

	phoneIssues := 0
	amountIssues := 0
	nameIssues := 0
	repaymentIssues := 0
	seen := make(map[string]bool)
	duplicates := 0

	for _, row := range records {
		if !validPhone(row["reporterPhone"]) || !validPhone(row["reporteePhone"]) {
			phoneIssues++
		}
		if !validAmount(row["initialAmount"]) || !validAmount(row["outstandingAmount"]) {
			amountIssues++
		}
		if len(row["reporterName"]) < 2 || len(row["reporteeName"]) < 2 {
			nameIssues++
		}
		key := duplicateKey(row)
		if seen[key] {
			duplicates++
		} else {
			seen[key] = true
		}
		if t := row["repaymentType"]; t != "" && !standardRepaymentTypes[t] {
			repaymentIssues++
		}
	}

	if phoneIssues > 0 {
		rules = append(rules, Rule{
			ID:              RulePhoneFormat,
			Field:           "Phone Numbers",
			Type:            RuleFormat,
			Description:     "Standardize phone number format to +1-XXX-XXX-XXXX",
			Severity:        SeverityWarning,
			AutoFix:         true,
			AffectedRecords: phoneIssues,
		})
	}
	if amountIssues > 0 {
		rules = append(rules, Rule{
			ID:              RuleAmountFormat,
			Field:           "Amount Fields",
			Type:            RuleFormat,
			Description:     "Remove currency symbols and ensure numeric format",
			Severity:        SeverityError,
			AutoFix:         true,
			AffectedRecords: amountIssues,
		})
	}
	if nameIssues > 0 {
		rules = append(rules, Rule{
			ID:              RuleNameValidation,
			Field:           "Name Fields",
			Type:            RuleValidation,
			Description:     "Names must be at least 2 characters long",
			Severity:        SeverityError,
			AutoFix:         false,
			AffectedRecords: nameIssues,
		})
	}
	if duplicates > 0 {
		rules = append(rules, Rule{
			ID:              RuleDuplicates,
			Field:           "All Fields",
			Type:            RuleCleanup,
			Description:     "Remove duplicate records based on reporter and reportee combination",
			Severity:        SeverityWarning,
			AutoFix:         true,
			AffectedRecords: duplicates,
		})
	}
	if repaymentIssues > 0 {
		rules = append(rules, Rule{
			ID:              RuleRepaymentFormat,
			Field:           "Repayment Type",
			Type:            RuleStandardization,
			Description:     "Standardize repayment types to: Installment, Single Payment, Open Payment",
			Severity:        SeverityWarning,
			AutoFix:         true,
			AffectedRecords: repaymentIssues,
		})
	}

	return rules, nil
}

func validPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

func validAmount(amount string) bool {
	cleaned := cleanAmount(amount)
	if cleaned == "" {
		return true
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	return err == nil && n >= 0
}

func duplicateKey(row Record) string {
	return row["reporterName"] + "-" + row["reporteeName"]
}

// SanitizeResult is the outcome of applying the selected rules.
type SanitizeResult struct {
	Records      []Record `json:"records"`
	AppliedRules []Rule   `json:"applied_rules"`
	// UnresolvedErrors counts records still violating rules that cannot be
	// auto-fixed and were left for manual correction upstream.
	UnresolvedErrors int `json:"unresolved_errors"`
}

// ApplyRules runs every applied rule's transform over a working copy in the
// fixed order phone, amount, duplicates, repayment. Transforms are
// idempotent on already-clean data. Rules without a transform (manual-fix
// rules) are counted, not applied.
func ApplyRules(records []Record, rules []Rule) SanitizeResult {
	cleaned := make([]Record, len(records))
	for i, row := range records {
		cleaned[i] = cloneRecord(row)
	}

	applied := make(map[string]bool)
	var appliedRules []Rule
	unresolved := 0
	for _, r := range rules {
		if r.Applied {
			applied[r.ID] = true
			appliedRules = append(appliedRules, r)
		}
		if !r.AutoFix {
			unresolved += r.AffectedRecords
		}
	}

	if applied[RulePhoneFormat] {
		for _, row := range cleaned {
			row["reporterPhone"] = formatPhone(row["reporterPhone"])
			row["reporteePhone"] = formatPhone(row["reporteePhone"])
		}
	}
	if applied[RuleAmountFormat] {
		for _, row := range cleaned {
			row["initialAmount"] = cleanAmount(row["initialAmount"])
			row["outstandingAmount"] = cleanAmount(row["outstandingAmount"])
		}
	}
	if applied[RuleDuplicates] {
		seen := make(map[string]bool)
		deduped := cleaned[:0]
		for _, row := range cleaned {
			key := duplicateKey(row)
			if seen[key] {
				continue
			}
			seen[key] = true
			deduped = append(deduped, row)
		}
		cleaned = deduped
	}
	if applied[RuleRepaymentFormat] {
		for _, row := range cleaned {
			row["repaymentType"] = standardizeRepaymentType(row["repaymentType"])
		}
	}

	return SanitizeResult{
		Records:          cleaned,
		AppliedRules:     appliedRules,
		UnresolvedErrors: unresolved,
	}
}

// ApplyAllAutoFixes marks every auto-fixable rule applied, leaving manual
// rules untouched. Returns the number of rules flipped on.
func ApplyAllAutoFixes(rules []Rule) int {
	n := 0
	for i := range rules {
		if rules[i].AutoFix && !rules[i].Applied {
			rules[i].Applied = true
			n++
		}
	}
	return n
}

// ToggleRule flips the applied flag of the rule with the given id.
func ToggleRule(rules []Rule, id string) bool {
	for i := range rules {
		if rules[i].ID == id {
			rules[i].Applied = !rules[i].Applied
			return true
		}
	}
	return false
}

var nonDigitRe = regexp.MustCompile(`\D`)

// formatPhone normalizes 10 and 11 digit North American numbers to
// +1-XXX-XXX-XXXX. Anything else passes through untouched. Re-formatting an
// already-formatted number recomputes the same target, so the transform is
// idempotent.
func formatPhone(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")
	if len(digits) == 10 {
		return "+1-" + digits[0:3] + "-" + digits[3:6] + "-" + digits[6:]
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		return "+1-" + digits[1:4] + "-" + digits[4:7] + "-" + digits[7:]
	}
	return phone
}

var currencyRe = regexp.MustCompile(`[$,]`)

func cleanAmount(amount string) string {
	return currencyRe.ReplaceAllString(amount, "")
}

func standardizeRepaymentType(t string) string {
	lower := strings.ToLower(t)
	switch {
	case strings.Contains(lower, "install"), strings.Contains(lower, "monthly"), strings.Contains(lower, "quarterly"):
		return "Installment"
	case strings.Contains(lower, "single"), strings.Contains(lower, "lump"), strings.Contains(lower, "one"):
		return "Single Payment"
	case strings.Contains(lower, "open"), strings.Contains(lower, "flexible"):
		return "Open Payment"
	default:
		return "Installment"
	}
}

func cloneRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
