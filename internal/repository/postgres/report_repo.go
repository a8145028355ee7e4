package postgres

import (
	"context"
	"fmt"

	"github.com/goodpass/backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository implements storage for community loan reports.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new report repository
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

const reportColumns = `
	id, report_type, unique_id, initial_amount, outstanding_amount,
	repayment_type, last_repayment_date, report_status, verification_status,
	reporter_name, reporter_status, reporter_phone,
	reportee_name, reportee_phone, collateral_info
`

// ListReports returns the full report set, newest first. The set is small
// enough that filtering and pagination happen in memory against it.
func (r *ReportRepository) ListReports(ctx context.Context) ([]domain.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports ORDER BY id DESC"
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var rep domain.Report
		err := rows.Scan(
			&rep.ID, &rep.ReportType, &rep.UniqueID, &rep.InitialAmount, &rep.OutstandingAmount,
			&rep.RepaymentType, &rep.LastRepaymentDate, &rep.ReportStatus, &rep.VerificationStatus,
			&rep.ReporterName, &rep.ReporterStatus, &rep.ReporterPhone,
			&rep.ReporteeName, &rep.ReporteePhone, &rep.CollateralInfo,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// InsertBatch persists a batch of imported reports in a single round trip.
func (r *ReportRepository) InsertBatch(ctx context.Context, reports []domain.Report) error {
	if len(reports) == 0 {
		return nil
	}

	const query = `
		INSERT INTO reports (
			report_type, unique_id, initial_amount, outstanding_amount,
			repayment_type, last_repayment_date, report_status, verification_status,
			reporter_name, reporter_status, reporter_phone,
			reportee_name, reportee_phone, collateral_info
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	batch := &pgx.Batch{}
	for _, rep := range reports {
		batch.Queue(query,
			rep.ReportType, rep.UniqueID, rep.InitialAmount, rep.OutstandingAmount,
			rep.RepaymentType, rep.LastRepaymentDate, rep.ReportStatus, rep.VerificationStatus,
			rep.ReporterName, rep.ReporterStatus, rep.ReporterPhone,
			rep.ReporteeName, rep.ReporteePhone, rep.CollateralInfo,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(reports); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert report %d of batch: %w", i, err)
		}
	}
	return nil
}
