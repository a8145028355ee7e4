package service

import (
	"context"
	"fmt"

	"github.com/goodpass/backoffice/internal/domain"
)

// ReportLister loads the full report set for in-memory filtering.
type ReportLister interface {
	ListReports(ctx context.Context) ([]domain.Report, error)
}

// ReportService serves the filtered, paginated community-report table.
type ReportService struct {
	repo ReportLister
}

func NewReportService(repo ReportLister) *ReportService {
	return &ReportService{repo: repo}
}

// ReportPage is one page of filtered reports plus the numbers the table
// footer needs.
type ReportPage struct {
	Reports    []domain.Report `json:"reports"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	TotalCount int             `json:"total_count"`
}

// List applies the query to the full report set and returns the requested
// page. A page past the end of the filtered set resets to page 1, matching
// what happens when a filter change shrinks the result set.
func (s *ReportService) List(ctx context.Context, q domain.ReportQuery, pageSize, page int) (*ReportPage, error) {
	reports, err := s.repo.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	filtered := domain.FilterReports(reports, q)
	totalPages := domain.TotalPages(len(filtered), pageSize)

	if page < 1 {
		page = 1
	}
	if page > totalPages && totalPages > 0 {
		page = 1
	}

	return &ReportPage{
		Reports:    domain.Paginate(filtered, pageSize, page),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalCount: len(filtered),
	}, nil
}
