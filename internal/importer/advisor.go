package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// CanonicalField is a target schema key imported data is mapped onto.
type CanonicalField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// CanonicalFields is the standard Goodpass report schema.
var CanonicalFields = []CanonicalField{
	{Key: "reporterName", Label: "Reporter Name", Required: true},
	{Key: "reporterPhone", Label: "Reporter Phone", Required: true},
	{Key: "reporteeName", Label: "Reportee Name", Required: true},
	{Key: "reporteePhone", Label: "Reportee Phone", Required: true},
	{Key: "initialAmount", Label: "Initial Amount", Required: true},
	{Key: "outstandingAmount", Label: "Outstanding Amount", Required: true},
	{Key: "repaymentType", Label: "Repayment Type", Required: true},
	{Key: "lastRepaymentDate", Label: "Last Repayment Date", Required: false},
	{Key: "collateralInfo", Label: "Collateral Information", Required: false},
	{Key: "reportType", Label: "Report Type", Required: false},
}

// SuggestionStatus is the lifecycle state of a mapping suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Suggestion proposes mapping one source field onto a canonical field.
type Suggestion struct {
	SourceField string           `json:"sourceField"`
	TargetField string           `json:"targetField"`
	Confidence  float64          `json:"confidence"`
	Status      SuggestionStatus `json:"status"`
	Reason      string           `json:"reason"`
}

// Advisor proposes source-field to canonical-field correspondences. It is an
// injected collaborator so tests can substitute a deterministic fake.
type Advisor interface {
	Propose(ctx context.Context, sourceFields []string) ([]Suggestion, error)
}

type mappingRule struct {
	target     string
	confidence float64
	reason     string
	match      func(field string) bool
}

func both(a, b string) func(string) bool {
	return func(f string) bool { return strings.Contains(f, a) && strings.Contains(f, b) }
}

func withEither(a string, alts ...string) func(string) bool {
	return func(f string) bool {
		if !strings.Contains(f, a) {
			return false
		}
		for _, alt := range alts {
			if strings.Contains(f, alt) {
				return true
			}
		}
		return false
	}
}

func anyOf(subs ...string) func(string) bool {
	return func(f string) bool {
		for _, s := range subs {
			if strings.Contains(f, s) {
				return true
			}
		}
		return false
	}
}

// Ordered by priority; the first matching rule wins for a source field.
var mappingRules = []mappingRule{
	{"reporterName", 0.95, "field name combines 'reporter' and 'name'", both("reporter", "name")},
	{"reporterName", 0.85, "'lender' is the reporting party in loan exports", both("lender", "name")},
	{"reporterPhone", 0.90, "field name combines 'reporter' and a phone keyword", withEither("reporter", "phone", "contact")},
	{"reporterPhone", 0.80, "'lender' contact details map to the reporter", withEither("lender", "contact", "phone")},
	{"reporteeName", 0.95, "field name combines 'reportee' and 'name'", both("reportee", "name")},
	{"reporteeName", 0.85, "'borrower' is the reported party in loan exports", both("borrower", "name")},
	{"reporteePhone", 0.90, "field name combines 'reportee' and a phone keyword", withEither("reportee", "phone", "contact")},
	{"reporteePhone", 0.80, "'borrower' contact details map to the reportee", withEither("borrower", "contact", "phone")},
	{"initialAmount", 0.90, "loan amount or principal is the initial amount", func(f string) bool {
		return both("loan", "amount")(f) || strings.Contains(f, "principal")
	}},
	{"outstandingAmount", 0.85, "outstanding, remaining or balance keywords", anyOf("outstanding", "remaining", "balance")},
	{"repaymentType", 0.75, "repayment type or payment terms keywords", func(f string) bool {
		return both("repayment", "type")(f) || both("payment", "terms")(f)
	}},
	{"collateralInfo", 0.80, "collateral or security keywords", anyOf("collateral", "security")},
}

// HeuristicAdvisor is the rule-based mapping advisor. Keyword rules carry
// hand-assigned confidences; fields no rule recognizes fall back to
// edit-distance similarity against the canonical labels, capped well below
// the auto-accept threshold.
type HeuristicAdvisor struct {
	fuzzyThreshold float64
}

// NewHeuristicAdvisor creates an advisor; fuzzyThreshold is the minimum
// normalized similarity for a fallback suggestion.
func NewHeuristicAdvisor(fuzzyThreshold float64) *HeuristicAdvisor {
	return &HeuristicAdvisor{fuzzyThreshold: fuzzyThreshold}
}

// Propose returns at most one suggestion per source field; fields matching
// nothing produce no suggestion at all.
func (a *HeuristicAdvisor) Propose(_ context.Context, sourceFields []string) ([]Suggestion, error) {
	var suggestions []Suggestion
	for _, field := range sourceFields {
		lower := strings.ToLower(field)

		matched := false
		for _, rule := range mappingRules {
			if rule.match(lower) {
				suggestions = append(suggestions, Suggestion{
					SourceField: field,
					TargetField: rule.target,
					Confidence:  rule.confidence,
					Status:      SuggestionPending,
					Reason:      rule.reason,
				})
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if s, ok := a.fuzzyMatch(field); ok {
			suggestions = append(suggestions, s)
		}
	}
	return suggestions, nil
}

func (a *HeuristicAdvisor) fuzzyMatch(field string) (Suggestion, bool) {
	norm := normalizeFieldName(field)
	if norm == "" {
		return Suggestion{}, false
	}

	var best CanonicalField
	bestSim := 0.0
	for _, cf := range CanonicalFields {
		for _, candidate := range []string{normalizeFieldName(cf.Label), normalizeFieldName(cf.Key)} {
			if sim := similarity(norm, candidate); sim > bestSim {
				bestSim = sim
				best = cf
			}
		}
	}
	if bestSim < a.fuzzyThreshold {
		return Suggestion{}, false
	}
	return Suggestion{
		SourceField: field,
		TargetField: best.Key,
		// Scaled so fuzzy matches always require explicit review.
		Confidence: 0.70 * bestSim,
		Status:     SuggestionPending,
		Reason:     fmt.Sprintf("close textual match to %q", best.Label),
	}, true
}

func normalizeFieldName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// ApplySuggestions records proposed suggestions on the aggregate and
// auto-accepts any with confidence strictly above threshold, merging their
// mappings.
func (d *ImportData) ApplySuggestions(suggestions []Suggestion, threshold float64) {
	d.Suggestions = suggestions
	for i := range d.Suggestions {
		if d.Suggestions[i].Confidence > threshold {
			d.Suggestions[i].Status = SuggestionAccepted
			d.FieldMappings[d.Suggestions[i].TargetField] = d.Suggestions[i].SourceField
		}
	}
}

// AcceptSuggestion accepts suggestion i and merges its mapping. When the
// target was already mapped from a different source field the later accept
// wins; the overwritten source field is returned so callers can warn.
func (d *ImportData) AcceptSuggestion(i int) (previous string, err error) {
	if i < 0 || i >= len(d.Suggestions) {
		return "", fmt.Errorf("suggestion index %d out of range", i)
	}
	s := &d.Suggestions[i]
	prev := d.FieldMappings[s.TargetField]
	s.Status = SuggestionAccepted
	d.FieldMappings[s.TargetField] = s.SourceField
	if prev != "" && prev != s.SourceField {
		return prev, nil
	}
	return "", nil
}

// RejectSuggestion marks suggestion i rejected without touching mappings.
// The target stays available for manual or later mapping.
func (d *ImportData) RejectSuggestion(i int) error {
	if i < 0 || i >= len(d.Suggestions) {
		return fmt.Errorf("suggestion index %d out of range", i)
	}
	d.Suggestions[i].Status = SuggestionRejected
	return nil
}

// AcceptAllPending accepts every pending suggestion in listed order and
// returns how many were accepted.
func (d *ImportData) AcceptAllPending() int {
	n := 0
	for i := range d.Suggestions {
		if d.Suggestions[i].Status == SuggestionPending {
			d.Suggestions[i].Status = SuggestionAccepted
			d.FieldMappings[d.Suggestions[i].TargetField] = d.Suggestions[i].SourceField
			n++
		}
	}
	return n
}

// SetMapping manually maps a canonical field; an empty source clears it.
func (d *ImportData) SetMapping(targetField, sourceField string) {
	if sourceField == "" {
		delete(d.FieldMappings, targetField)
		return
	}
	d.FieldMappings[targetField] = sourceField
}

// AllRequiredMapped reports whether every required canonical field has a
// source mapping.
func (d *ImportData) AllRequiredMapped() bool {
	for _, cf := range CanonicalFields {
		if cf.Required && d.FieldMappings[cf.Key] == "" {
			return false
		}
	}
	return true
}

// GeneratePreview projects the raw records through the current mappings into
// the mapped data set.
func (d *ImportData) GeneratePreview() int {
	mapped := make([]Record, 0, len(d.Raw))
	for _, row := range d.Raw {
		out := make(Record, len(d.FieldMappings))
		for target, source := range d.FieldMappings {
			out[target] = row[source]
		}
		mapped = append(mapped, out)
	}
	d.Mapped = mapped
	return len(mapped)
}
