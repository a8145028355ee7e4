package domain

import (
	"strings"
	"time"
)

// FilterAll is the sentinel value meaning "no filter on this dimension".
const FilterAll = "all"

// Report statuses as stored on reports
const (
	ReportStatusActive  = "Active"
	ReportStatusPending = "Pending"
)

// Verification statuses as stored on reports
const (
	VerificationVerified   = "Verified"
	VerificationPartially  = "Partially Verified"
	VerificationUnverified = "Unverified"
)

// Reporter types
const (
	ReporterIndividual = "individual"
	ReporterBusiness   = "business"
)

// Report is a community loan report as rendered on the moderation screens.
// Amounts are kept as strings; imported data arrives unnormalized and the
// sanitization engine owns cleanup.
type Report struct {
	ID                 int64  `json:"id"`
	ReportType         string `json:"reportType"`
	UniqueID           string `json:"uniqueId"`
	InitialAmount      string `json:"initialAmount"`
	OutstandingAmount  string `json:"outstandingAmount"`
	RepaymentType      string `json:"repaymentType"`
	LastRepaymentDate  string `json:"lastRepaymentDate"`
	ReportStatus       string `json:"reportStatus"`
	VerificationStatus string `json:"verificationStatus"`
	ReporterName       string `json:"reporterName"`
	ReporterStatus     string `json:"reporterStatus"`
	ReporterPhone      string `json:"reporterPhone"`
	ReporteeName       string `json:"reporteeName"`
	ReporteePhone      string `json:"reporteePhone"`
	CollateralInfo     string `json:"collateralInfo"`
}

// ReportQuery is a composite report filter: free-text search, three
// categorical dimensions and an optional inclusive date range over the last
// repayment date. The zero value of a dimension must be FilterAll to be a
// no-op; NewReportQuery returns a query that matches everything.
type ReportQuery struct {
	Search             string
	ReportStatus       string
	VerificationStatus string
	ReporterType       string
	StartDate          *time.Time
	EndDate            *time.Time
}

// NewReportQuery returns a query with every dimension open.
func NewReportQuery() ReportQuery {
	return ReportQuery{
		ReportStatus:       FilterAll,
		VerificationStatus: FilterAll,
		ReporterType:       FilterAll,
	}
}

// Matches reports whether r satisfies every dimension of the query.
// Pure and deterministic; never mutates r.
func (q ReportQuery) Matches(r Report) bool {
	return q.matchesSearch(r) &&
		q.matchesStatus(r) &&
		q.matchesDateRange(r)
}

func (q ReportQuery) matchesSearch(r Report) bool {
	if q.Search == "" {
		return true
	}
	lower := strings.ToLower(q.Search)
	// Phone fields are matched on the raw term so that "+1-555" works.
	return strings.Contains(strings.ToLower(r.UniqueID), lower) ||
		strings.Contains(strings.ToLower(r.ReporterName), lower) ||
		strings.Contains(strings.ToLower(r.ReporteeName), lower) ||
		strings.Contains(r.ReporterPhone, q.Search) ||
		strings.Contains(r.ReporteePhone, q.Search)
}

func (q ReportQuery) matchesStatus(r Report) bool {
	if q.ReportStatus != "" && q.ReportStatus != FilterAll && r.ReportStatus != q.ReportStatus {
		return false
	}
	if q.VerificationStatus != "" && q.VerificationStatus != FilterAll && r.VerificationStatus != q.VerificationStatus {
		return false
	}
	// Reporter type compares against the reporter's status field.
	if q.ReporterType != "" && q.ReporterType != FilterAll && r.ReporterStatus != q.ReporterType {
		return false
	}
	return true
}

func (q ReportQuery) matchesDateRange(r Report) bool {
	if q.StartDate == nil && q.EndDate == nil {
		return true
	}
	d, ok := parseReportDate(r.LastRepaymentDate)
	if !ok {
		// A record whose date cannot be parsed is excluded whenever a
		// bound is set.
		return false
	}
	if q.StartDate != nil && d.Before(*q.StartDate) {
		return false
	}
	if q.EndDate != nil && d.After(*q.EndDate) {
		return false
	}
	return true
}

var reportDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
}

func parseReportDate(s string) (time.Time, bool) {
	for _, layout := range reportDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// FilterReports returns the subset of reports matching q, preserving order.
func FilterReports(reports []Report, q ReportQuery) []Report {
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
