package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goodpass/backoffice/internal/auth"
	"github.com/goodpass/backoffice/internal/domain"
	"github.com/goodpass/backoffice/internal/importer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound   = errors.New("import session not found")
	ErrNothingToCommit   = errors.New("no sanitized records to commit")
	ErrUnsupportedSource = errors.New("unsupported import source")
)

// ReportWriter persists committed import batches.
type ReportWriter interface {
	InsertBatch(ctx context.Context, reports []domain.Report) error
}

// BatchArchiver stores the committed payload for audit.
type BatchArchiver interface {
	ArchiveImportBatch(ctx context.Context, batchID string, records any) error
}

// ImportService owns in-flight import sessions. Each session is one
// pipeline run; sessions are independent so two admins can import
// concurrently.
type ImportService struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*importer.Pipeline

	advisor    importer.Advisor
	analyzer   importer.Analyzer
	writer     ReportWriter
	archiver   BatchArchiver
	activity   ActivityRecorder
	autoAccept float64
	logger     *zap.Logger
}

func NewImportService(
	advisor importer.Advisor,
	analyzer importer.Analyzer,
	writer ReportWriter,
	archiver BatchArchiver,
	activity ActivityRecorder,
	autoAccept float64,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		sessions:   make(map[uuid.UUID]*importer.Pipeline),
		advisor:    advisor,
		analyzer:   analyzer,
		writer:     writer,
		archiver:   archiver,
		activity:   activity,
		autoAccept: autoAccept,
		logger:     logger,
	}
}

// StartSession creates a fresh pipeline and returns its session ID.
func (s *ImportService) StartSession() uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.sessions[id] = importer.NewPipeline()
	s.mu.Unlock()
	return id
}

// Session returns the pipeline for an active session.
func (s *ImportService) Session(id uuid.UUID) (*importer.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return p, nil
}

// EndSession drops a session without committing.
func (s *ImportService) EndSession(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// LoadSource decodes the payload for the selected source type into the
// session. CSV and JSON are parsed locally; API sources record the endpoint
// and accept the already-fetched payload as JSON.
func (s *ImportService) LoadSource(id uuid.UUID, source importer.Source, endpoint string, payload []byte) error {
	p, err := s.Session(id)
	if err != nil {
		return err
	}

	var records []importer.Record
	switch source {
	case importer.SourceCSV, importer.SourceExcel:
		records, err = importer.DecodeCSV(string(payload))
	case importer.SourceJSON, importer.SourceAPI:
		records, err = importer.DecodeJSON(payload)
	default:
		return ErrUnsupportedSource
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", source, err)
	}

	p.Update(func(d *importer.ImportData) {
		d.Source = source
		d.Endpoint = endpoint
		d.Raw = records
	})
	return nil
}

// ProposeMappings runs the field-mapping advisor over the session's source
// columns. High-confidence suggestions are auto-accepted; the rest stay
// pending for explicit review.
func (s *ImportService) ProposeMappings(ctx context.Context, id uuid.UUID) ([]importer.Suggestion, error) {
	p, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	var out []importer.Suggestion
	var proposeErr error
	p.Update(func(d *importer.ImportData) {
		suggestions, err := s.advisor.Propose(ctx, d.SourceFields())
		if err != nil {
			proposeErr = err
			return
		}
		d.ApplySuggestions(suggestions, s.autoAccept)
		out = append([]importer.Suggestion(nil), d.Suggestions...)
	})
	if proposeErr != nil {
		return nil, fmt.Errorf("failed to propose field mappings: %w", proposeErr)
	}
	return out, nil
}

// AcceptSuggestion accepts a pending suggestion by index. When the target
// field was already mapped, the displaced source column is returned so the
// caller can surface the overwrite.
func (s *ImportService) AcceptSuggestion(id uuid.UUID, index int) (string, error) {
	p, err := s.Session(id)
	if err != nil {
		return "", err
	}
	var previous string
	var acceptErr error
	p.Update(func(d *importer.ImportData) {
		previous, acceptErr = d.AcceptSuggestion(index)
	})
	if acceptErr != nil {
		return "", acceptErr
	}
	if previous != "" {
		s.logger.Warn("field mapping overwritten",
			zap.String("session_id", id.String()),
			zap.String("displaced_source", previous))
	}
	return previous, nil
}

// RejectSuggestion rejects a pending suggestion by index.
func (s *ImportService) RejectSuggestion(id uuid.UUID, index int) error {
	p, err := s.Session(id)
	if err != nil {
		return err
	}
	var rejectErr error
	p.Update(func(d *importer.ImportData) {
		rejectErr = d.RejectSuggestion(index)
	})
	return rejectErr
}

// AcceptAllPending accepts every pending suggestion, returning the count.
func (s *ImportService) AcceptAllPending(id uuid.UUID) (int, error) {
	p, err := s.Session(id)
	if err != nil {
		return 0, err
	}
	var accepted int
	p.Update(func(d *importer.ImportData) {
		accepted = d.AcceptAllPending()
	})
	return accepted, nil
}

// SetMapping manually maps a canonical field to a source column.
func (s *ImportService) SetMapping(id uuid.UUID, targetField, sourceField string) error {
	p, err := s.Session(id)
	if err != nil {
		return err
	}
	p.Update(func(d *importer.ImportData) {
		d.SetMapping(targetField, sourceField)
	})
	return nil
}

// GeneratePreview projects the raw records through the accepted mappings.
func (s *ImportService) GeneratePreview(id uuid.UUID) (int, error) {
	p, err := s.Session(id)
	if err != nil {
		return 0, err
	}
	var count int
	p.Update(func(d *importer.ImportData) {
		count = d.GeneratePreview()
	})
	return count, nil
}

// AnalyzeQuality runs the sanitization rule engine over the mapped records.
func (s *ImportService) AnalyzeQuality(ctx context.Context, id uuid.UUID) ([]importer.Rule, error) {
	p, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	var out []importer.Rule
	var analyzeErr error
	p.Update(func(d *importer.ImportData) {
		rules, err := s.analyzer.Analyze(ctx, d.Mapped)
		if err != nil {
			analyzeErr = err
			return
		}
		d.Rules = rules
		out = append([]importer.Rule(nil), rules...)
	})
	if analyzeErr != nil {
		return nil, fmt.Errorf("failed to analyze data quality: %w", analyzeErr)
	}
	return out, nil
}

// ToggleRule flips whether a detected rule will be applied.
func (s *ImportService) ToggleRule(id uuid.UUID, ruleID string) error {
	p, err := s.Session(id)
	if err != nil {
		return err
	}
	var found bool
	p.Update(func(d *importer.ImportData) {
		found = importer.ToggleRule(d.Rules, ruleID)
	})
	if !found {
		return fmt.Errorf("unknown sanitization rule %q", ruleID)
	}
	return nil
}

// ApplyAutoFixes marks every auto-fixable rule as applied.
func (s *ImportService) ApplyAutoFixes(id uuid.UUID) (int, error) {
	p, err := s.Session(id)
	if err != nil {
		return 0, err
	}
	var applied int
	p.Update(func(d *importer.ImportData) {
		applied = importer.ApplyAllAutoFixes(d.Rules)
	})
	return applied, nil
}

// ApplySanitization runs the applied rules over the mapped records and
// stores the cleaned result on the session.
func (s *ImportService) ApplySanitization(id uuid.UUID) (importer.SanitizeResult, error) {
	p, err := s.Session(id)
	if err != nil {
		return importer.SanitizeResult{}, err
	}

	var result importer.SanitizeResult
	p.Update(func(d *importer.ImportData) {
		result = importer.ApplyRules(d.Mapped, d.Rules)
		d.Sanitized = result.Records
	})
	return result, nil
}

// Commit persists the sanitized records as reports, archives the batch and
// drops the session. The session survives a failed commit so the admin can
// retry.
func (s *ImportService) Commit(ctx context.Context, actor auth.Identity, id uuid.UUID) (int, error) {
	p, err := s.Session(id)
	if err != nil {
		return 0, err
	}

	data := p.Snapshot()
	if len(data.Sanitized) == 0 {
		return 0, ErrNothingToCommit
	}

	reports := make([]domain.Report, len(data.Sanitized))
	for i, row := range data.Sanitized {
		reports[i] = recordToReport(row)
	}

	if err := s.writer.InsertBatch(ctx, reports); err != nil {
		s.recordCommit(ctx, actor, id, len(reports), domain.ActivityFailure)
		return 0, fmt.Errorf("failed to persist import batch: %w", err)
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveImportBatch(ctx, id.String(), data.Sanitized); err != nil {
			s.logger.Warn("failed to archive import batch",
				zap.String("session_id", id.String()),
				zap.Error(err))
		}
	}

	s.recordCommit(ctx, actor, id, len(reports), domain.ActivitySuccess)
	s.EndSession(id)
	return len(reports), nil
}

func (s *ImportService) recordCommit(ctx context.Context, actor auth.Identity, id uuid.UUID, count int, result domain.ActivityResult) {
	if s.activity == nil {
		return
	}
	event := domain.NewActivityEvent(actor.UserID, string(actor.Role), domain.ActionImportCommit, "import_batch", id.String())
	event.Result = result
	event.Detail = []byte(fmt.Sprintf(`{"record_count":%d}`, count))
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record import commit", zap.Error(err))
	}
}

func recordToReport(row importer.Record) domain.Report {
	reportType := row["reportType"]
	if reportType == "" {
		reportType = "imported"
	}
	return domain.Report{
		ReportType:         reportType,
		UniqueID:           fmt.Sprintf("GP-%s", uuid.New().String()[:8]),
		InitialAmount:      row["initialAmount"],
		OutstandingAmount:  row["outstandingAmount"],
		RepaymentType:      row["repaymentType"],
		LastRepaymentDate:  row["lastRepaymentDate"],
		ReportStatus:       domain.ReportStatusPending,
		VerificationStatus: domain.VerificationUnverified,
		ReporterName:       row["reporterName"],
		ReporterPhone:      row["reporterPhone"],
		ReporteeName:       row["reporteeName"],
		ReporteePhone:      row["reporteePhone"],
		CollateralInfo:     row["collateralInfo"],
	}
}
