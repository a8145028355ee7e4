package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/goodpass/backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReportRepo struct {
	reports []domain.Report
	err     error
}

func (f *fakeReportRepo) ListReports(context.Context) ([]domain.Report, error) {
	return f.reports, f.err
}

func manyReports(n int) []domain.Report {
	reports := make([]domain.Report, n)
	for i := range reports {
		status := domain.ReportStatusActive
		if i%2 == 1 {
			status = domain.ReportStatusPending
		}
		reports[i] = domain.Report{
			ID:                 int64(i + 1),
			UniqueID:           fmt.Sprintf("GP-%03d", i+1),
			ReporterName:       fmt.Sprintf("Reporter %d", i+1),
			ReportStatus:       status,
			VerificationStatus: domain.VerificationVerified,
			ReporterStatus:     domain.ReporterIndividual,
		}
	}
	return reports
}

func TestListReturnsRequestedPage(t *testing.T) {
	svc := NewReportService(&fakeReportRepo{reports: manyReports(25)})

	page, err := svc.List(context.Background(), domain.NewReportQuery(), 10, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 25, page.TotalCount)
	require.Len(t, page.Reports, 10)
	assert.Equal(t, "GP-011", page.Reports[0].UniqueID)
}

func TestListResetsPageWhenPastEnd(t *testing.T) {
	svc := NewReportService(&fakeReportRepo{reports: manyReports(25)})

	// A filter change shrank the result set under the requested page.
	q := domain.NewReportQuery()
	q.ReportStatus = domain.ReportStatusActive

	page, err := svc.List(context.Background(), q, 10, 8)
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 13, page.TotalCount)
	assert.Equal(t, "GP-001", page.Reports[0].UniqueID)
}

func TestListEmptyResult(t *testing.T) {
	svc := NewReportService(&fakeReportRepo{reports: manyReports(10)})

	q := domain.NewReportQuery()
	q.Search = "no such reporter"

	page, err := svc.List(context.Background(), q, 10, 1)
	require.NoError(t, err)

	assert.Equal(t, 0, page.TotalCount)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Empty(t, page.Reports)
}

func TestListNormalizesPageBelowOne(t *testing.T) {
	svc := NewReportService(&fakeReportRepo{reports: manyReports(5)})

	page, err := svc.List(context.Background(), domain.NewReportQuery(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Reports, 5)
}

func TestListRepoError(t *testing.T) {
	svc := NewReportService(&fakeReportRepo{err: assert.AnError})
	_, err := svc.List(context.Background(), domain.NewReportQuery(), 10, 1)
	assert.Error(t, err)
}
