package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proposeOne(t *testing.T, field string) Suggestion {
	t.Helper()
	a := NewHeuristicAdvisor(0.80)
	suggestions, err := a.Propose(context.Background(), []string{field})
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	return suggestions[0]
}

func TestKeywordRules(t *testing.T) {
	cases := []struct {
		field      string
		target     string
		confidence float64
	}{
		{"Reporter Name", "reporterName", 0.95},
		{"Lender Name", "reporterName", 0.85},
		{"Reporter Phone", "reporterPhone", 0.90},
		{"lender_contact", "reporterPhone", 0.80},
		{"Reportee Name", "reporteeName", 0.95},
		{"Borrower Name", "reporteeName", 0.85},
		{"reportee_phone", "reporteePhone", 0.90},
		{"borrower contact", "reporteePhone", 0.80},
		{"Loan Amount", "initialAmount", 0.90},
		{"Principal", "initialAmount", 0.90},
		{"Outstanding Balance", "outstandingAmount", 0.85},
		{"Remaining Amount", "outstandingAmount", 0.85},
		{"Repayment Type", "repaymentType", 0.75},
		{"Payment Terms", "repaymentType", 0.75},
		{"Collateral Details", "collateralInfo", 0.80},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			s := proposeOne(t, tc.field)
			assert.Equal(t, tc.target, s.TargetField)
			assert.InDelta(t, tc.confidence, s.Confidence, 1e-9)
			assert.Equal(t, SuggestionPending, s.Status)
			assert.NotEmpty(t, s.Reason)
		})
	}
}

func TestFirstMatchingRuleWins(t *testing.T) {
	// Matches both the reporter-name rule and the lender rule; the
	// higher-priority reporter rule applies.
	s := proposeOne(t, "Reporter Lender Name")
	assert.Equal(t, "reporterName", s.TargetField)
	assert.InDelta(t, 0.95, s.Confidence, 1e-9)
}

func TestUnrecognizedFieldGetsNoSuggestion(t *testing.T) {
	a := NewHeuristicAdvisor(0.80)
	suggestions, err := a.Propose(context.Background(), []string{"favorite color"})
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestFuzzyFallbackOnTypo(t *testing.T) {
	// One edit away from "outstandingamount"; similarity well above the
	// threshold, confidence capped below auto-accept.
	s := proposeOne(t, "outstandngamount")
	assert.Equal(t, "outstandingAmount", s.TargetField)
	assert.Less(t, s.Confidence, 0.75)
	assert.Greater(t, s.Confidence, 0.60)
	assert.Equal(t, SuggestionPending, s.Status)
}

func TestApplySuggestionsAutoAcceptsAboveThreshold(t *testing.T) {
	d := NewImportData()
	d.ApplySuggestions([]Suggestion{
		{SourceField: "Reporter Name", TargetField: "reporterName", Confidence: 0.95, Status: SuggestionPending},
		{SourceField: "Lender Name", TargetField: "reporterName2", Confidence: 0.85, Status: SuggestionPending},
		{SourceField: "Borrower Phone", TargetField: "reporteePhone", Confidence: 0.90, Status: SuggestionPending},
	}, 0.90)

	assert.Equal(t, SuggestionAccepted, d.Suggestions[0].Status)
	assert.Equal(t, SuggestionPending, d.Suggestions[1].Status)
	// Exactly at threshold is not auto-accepted.
	assert.Equal(t, SuggestionPending, d.Suggestions[2].Status)

	assert.Equal(t, "Reporter Name", d.FieldMappings["reporterName"])
	assert.NotContains(t, d.FieldMappings, "reporteePhone")
}

func TestAcceptSuggestionReturnsDisplacedSource(t *testing.T) {
	d := NewImportData()
	d.Suggestions = []Suggestion{
		{SourceField: "colA", TargetField: "reporterName", Status: SuggestionPending},
		{SourceField: "colB", TargetField: "reporterName", Status: SuggestionPending},
	}

	prev, err := d.AcceptSuggestion(0)
	require.NoError(t, err)
	assert.Empty(t, prev)

	prev, err = d.AcceptSuggestion(1)
	require.NoError(t, err)
	assert.Equal(t, "colA", prev)
	assert.Equal(t, "colB", d.FieldMappings["reporterName"])
}

func TestAcceptSuggestionOutOfRange(t *testing.T) {
	d := NewImportData()
	_, err := d.AcceptSuggestion(0)
	assert.Error(t, err)
	_, err = d.AcceptSuggestion(-1)
	assert.Error(t, err)
}

func TestRejectLeavesMappingsUntouched(t *testing.T) {
	d := NewImportData()
	d.FieldMappings["reporterName"] = "colA"
	d.Suggestions = []Suggestion{
		{SourceField: "colB", TargetField: "reporterName", Status: SuggestionPending},
	}

	require.NoError(t, d.RejectSuggestion(0))
	assert.Equal(t, SuggestionRejected, d.Suggestions[0].Status)
	assert.Equal(t, "colA", d.FieldMappings["reporterName"])
}

func TestAcceptAllPendingSkipsDecided(t *testing.T) {
	d := NewImportData()
	d.Suggestions = []Suggestion{
		{SourceField: "a", TargetField: "reporterName", Status: SuggestionAccepted},
		{SourceField: "b", TargetField: "reporteeName", Status: SuggestionPending},
		{SourceField: "c", TargetField: "reporterPhone", Status: SuggestionRejected},
		{SourceField: "d", TargetField: "reporteePhone", Status: SuggestionPending},
	}

	assert.Equal(t, 2, d.AcceptAllPending())
	assert.Equal(t, "b", d.FieldMappings["reporteeName"])
	assert.Equal(t, "d", d.FieldMappings["reporteePhone"])
	assert.NotContains(t, d.FieldMappings, "reporterPhone")
}

func TestSetMappingAndClear(t *testing.T) {
	d := NewImportData()
	d.SetMapping("reporterName", "colA")
	assert.Equal(t, "colA", d.FieldMappings["reporterName"])

	d.SetMapping("reporterName", "")
	assert.NotContains(t, d.FieldMappings, "reporterName")
}

func TestAllRequiredMapped(t *testing.T) {
	d := NewImportData()
	assert.False(t, d.AllRequiredMapped())

	for _, cf := range CanonicalFields {
		if cf.Required {
			d.SetMapping(cf.Key, "src_"+cf.Key)
		}
	}
	assert.True(t, d.AllRequiredMapped())
}

func TestGeneratePreviewProjectsMappedColumns(t *testing.T) {
	d := NewImportData()
	d.Raw = []Record{
		{"Name": "Alice", "Phone": "555-1234", "Ignored": "x"},
		{"Name": "Bob", "Phone": "555-5678", "Ignored": "y"},
	}
	d.SetMapping("reporterName", "Name")
	d.SetMapping("reporterPhone", "Phone")

	count := d.GeneratePreview()
	assert.Equal(t, 2, count)
	assert.Equal(t, Record{"reporterName": "Alice", "reporterPhone": "555-1234"}, d.Mapped[0])
	assert.Equal(t, Record{"reporterName": "Bob", "reporterPhone": "555-5678"}, d.Mapped[1])
}
