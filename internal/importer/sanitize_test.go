package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleByID(rules []Rule, id string) (Rule, bool) {
	for _, r := range rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

func messyRecords() []Record {
	return []Record{
		{
			"reporterName":      "Alice Johnson",
			"reporterPhone":     "555/123/4567",
			"reporteeName":      "Bob Smith",
			"reporteePhone":     "(555) 987-6543",
			"initialAmount":     "$5,000",
			"outstandingAmount": "2500",
			"repaymentType":     "monthly",
		},
		{
			"reporterName":      "Alice Johnson",
			"reporterPhone":     "555/123/4567",
			"reporteeName":      "Bob Smith",
			"reporteePhone":     "(555) 987-6543",
			"initialAmount":     "$5,000",
			"outstandingAmount": "2500",
			"repaymentType":     "monthly",
		},
		{
			"reporterName":      "C",
			"reporterPhone":     "+1-555-222-3333",
			"reporteeName":      "Dan Brown",
			"reporteePhone":     "+1-555-444-5555",
			"initialAmount":     "1000",
			"outstandingAmount": "abc",
			"repaymentType":     "Installment",
		},
	}
}

func TestAnalyzeDetectsAllIssueClasses(t *testing.T) {
	rules, err := NewRuleEngine().Analyze(context.Background(), messyRecords())
	require.NoError(t, err)

	phone, ok := ruleByID(rules, RulePhoneFormat)
	require.True(t, ok)
	assert.Equal(t, 2, phone.AffectedRecords)
	assert.True(t, phone.AutoFix)
	assert.Equal(t, SeverityWarning, phone.Severity)

	amount, ok := ruleByID(rules, RuleAmountFormat)
	require.True(t, ok)
	assert.Equal(t, 1, amount.AffectedRecords)
	assert.Equal(t, SeverityError, amount.Severity)

	name, ok := ruleByID(rules, RuleNameValidation)
	require.True(t, ok)
	assert.Equal(t, 1, name.AffectedRecords)
	assert.False(t, name.AutoFix)

	dup, ok := ruleByID(rules, RuleDuplicates)
	require.True(t, ok)
	assert.Equal(t, 1, dup.AffectedRecords)

	rep, ok := ruleByID(rules, RuleRepaymentFormat)
	require.True(t, ok)
	assert.Equal(t, 2, rep.AffectedRecords)
}

func TestAnalyzeEmitsNothingForCleanData(t *testing.T) {
	clean := []Record{
		{
			"reporterName":      "Alice Johnson",
			"reporterPhone":     "+1-555-123-4567",
			"reporteeName":      "Bob Smith",
			"reporteePhone":     "+1-555-987-6543",
			"initialAmount":     "5000",
			"outstandingAmount": "2500",
			"repaymentType":     "Installment",
		},
	}
	rules, err := NewRuleEngine().Analyze(context.Background(), clean)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "+1-555-123-4567", formatPhone("5551234567"))
	assert.Equal(t, "+1-555-123-4567", formatPhone("(555) 123-4567"))
	assert.Equal(t, "+1-555-123-4567", formatPhone("1-555-123-4567"))
	assert.Equal(t, "+1-555-123-4567", formatPhone("15551234567"))
	// Not enough digits passes through untouched.
	assert.Equal(t, "12345", formatPhone("12345"))
	// Idempotent on already-formatted numbers.
	assert.Equal(t, "+1-555-123-4567", formatPhone(formatPhone("5551234567")))
}

func TestCleanAmount(t *testing.T) {
	assert.Equal(t, "5000", cleanAmount("$5,000"))
	assert.Equal(t, "2500.50", cleanAmount("2,500.50"))
	assert.Equal(t, "", cleanAmount(""))
}

func TestStandardizeRepaymentType(t *testing.T) {
	assert.Equal(t, "Installment", standardizeRepaymentType("monthly installments"))
	assert.Equal(t, "Installment", standardizeRepaymentType("Quarterly"))
	assert.Equal(t, "Single Payment", standardizeRepaymentType("lump sum"))
	assert.Equal(t, "Single Payment", standardizeRepaymentType("one-time"))
	assert.Equal(t, "Open Payment", standardizeRepaymentType("flexible"))
	assert.Equal(t, "Open Payment", standardizeRepaymentType("Open"))
	assert.Equal(t, "Installment", standardizeRepaymentType("whatever"))
}

func TestApplyRulesRunsOnlyAppliedRules(t *testing.T) {
	records := messyRecords()
	rules, err := NewRuleEngine().Analyze(context.Background(), records)
	require.NoError(t, err)

	// Nothing applied yet; output equals input.
	result := ApplyRules(records, rules)
	assert.Len(t, result.Records, 3)
	assert.Empty(t, result.AppliedRules)
	assert.Equal(t, "555/123/4567", result.Records[0]["reporterPhone"])

	ApplyAllAutoFixes(rules)
	result = ApplyRules(records, rules)

	// Duplicate pair collapsed.
	assert.Len(t, result.Records, 2)
	assert.Equal(t, "+1-555-123-4567", result.Records[0]["reporterPhone"])
	assert.Equal(t, "+1-555-987-6543", result.Records[0]["reporteePhone"])
	assert.Equal(t, "5000", result.Records[0]["initialAmount"])
	assert.Equal(t, "Installment", result.Records[0]["repaymentType"])

	// Name rule cannot auto-fix; its records count as unresolved.
	assert.Equal(t, 1, result.UnresolvedErrors)
	assert.Len(t, result.AppliedRules, 4)
}

func TestApplyRulesNeverMutatesInput(t *testing.T) {
	records := messyRecords()
	rules, err := NewRuleEngine().Analyze(context.Background(), records)
	require.NoError(t, err)
	ApplyAllAutoFixes(rules)

	ApplyRules(records, rules)
	assert.Equal(t, "555/123/4567", records[0]["reporterPhone"])
	assert.Len(t, records, 3)
}

func TestApplyAllAutoFixesSkipsManualRules(t *testing.T) {
	rules := []Rule{
		{ID: RulePhoneFormat, AutoFix: true},
		{ID: RuleNameValidation, AutoFix: false},
		{ID: RuleDuplicates, AutoFix: true, Applied: true},
	}
	assert.Equal(t, 1, ApplyAllAutoFixes(rules))
	assert.True(t, rules[0].Applied)
	assert.False(t, rules[1].Applied)
	assert.True(t, rules[2].Applied)
}

func TestToggleRule(t *testing.T) {
	rules := []Rule{{ID: RulePhoneFormat}}
	assert.True(t, ToggleRule(rules, RulePhoneFormat))
	assert.True(t, rules[0].Applied)
	assert.True(t, ToggleRule(rules, RulePhoneFormat))
	assert.False(t, rules[0].Applied)
	assert.False(t, ToggleRule(rules, "no-such-rule"))
}
