package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodpass/backoffice/internal/auth"
	"github.com/goodpass/backoffice/internal/cache"
	"github.com/goodpass/backoffice/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrRejectionReasonRequired = errors.New("rejection reason is required")

// KYCRepository is the persistence surface the KYC service needs.
type KYCRepository interface {
	UsersNeedingKYC(ctx context.Context) ([]domain.UserProfile, error)
	VerificationsByUsers(ctx context.Context, userIDs []uuid.UUID) ([]domain.KYCVerification, error)
	DocumentsByUsers(ctx context.Context, userIDs []uuid.UUID) ([]domain.SupportingDocument, error)
	Approve(ctx context.Context, userID uuid.UUID, verifiedAt time.Time) error
	Reject(ctx context.Context, userID uuid.UUID, reason string) error
}

// DocumentSigner resolves stored document keys to signed URLs.
type DocumentSigner interface {
	SignedDocumentURL(ctx context.Context, key string) (string, error)
}

// PendingCache caches the assembled pending-review list.
type PendingCache interface {
	Get(ctx context.Context) ([]*domain.PendingReview, error)
	Set(ctx context.Context, reviews []*domain.PendingReview) error
	Invalidate(ctx context.Context) error
}

// ActivityRecorder records admin actions to the activity trail.
type ActivityRecorder interface {
	Record(ctx context.Context, event *domain.ActivityEvent) error
}

// KYCService assembles the verification review queue and applies moderator
// decisions.
type KYCService struct {
	repo     KYCRepository
	signer   DocumentSigner
	cache    PendingCache
	activity ActivityRecorder
	logger   *zap.Logger
}

func NewKYCService(repo KYCRepository, signer DocumentSigner, pending PendingCache, activity ActivityRecorder, logger *zap.Logger) *KYCService {
	return &KYCService{
		repo:     repo,
		signer:   signer,
		cache:    pending,
		activity: activity,
		logger:   logger,
	}
}

// PendingReviews returns every user awaiting a KYC decision, joined with
// their verification record and supporting documents. Users who have
// submitted no verification yet appear with a synthetic pending record so
// the review queue shows everyone who needs attention.
func (s *KYCService) PendingReviews(ctx context.Context) ([]*domain.PendingReview, error) {
	if s.cache != nil {
		if reviews, err := s.cache.Get(ctx); err == nil {
			return reviews, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("pending review cache read failed", zap.Error(err))
		}
	}

	users, err := s.repo.UsersNeedingKYC(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users needing verification: %w", err)
	}
	if len(users) == 0 {
		return []*domain.PendingReview{}, nil
	}

	userIDs := make([]uuid.UUID, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}

	verifications, err := s.repo.VerificationsByUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load verifications: %w", err)
	}
	documents, err := s.repo.DocumentsByUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load supporting documents: %w", err)
	}

	verByUser := make(map[uuid.UUID]domain.KYCVerification, len(verifications))
	for _, v := range verifications {
		// Queries order by created_at DESC; keep the newest per user.
		if _, seen := verByUser[v.UserID]; !seen {
			verByUser[v.UserID] = v
		}
	}
	docsByUser := make(map[uuid.UUID][]domain.SupportingDocument)
	for _, d := range documents {
		docsByUser[d.UploadedBy] = append(docsByUser[d.UploadedBy], d)
	}

	reviews := make([]*domain.PendingReview, 0, len(users))
	for _, u := range users {
		verification, ok := verByUser[u.ID]
		if !ok {
			verification = domain.PlaceholderVerification(u)
		}
		reviews = append(reviews, &domain.PendingReview{
			User:         u,
			Verification: verification,
			Documents:    docsByUser[u.ID],
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, reviews); err != nil {
			s.logger.Warn("pending review cache write failed", zap.Error(err))
		}
	}
	return reviews, nil
}

// Approve marks the user's verification as verified and completes their
// profile in a single transaction. Optional notes land on the activity
// trail, not on the verification record.
func (s *KYCService) Approve(ctx context.Context, actor auth.Identity, userID uuid.UUID, notes string) error {
	if err := s.repo.Approve(ctx, userID, time.Now().UTC()); err != nil {
		s.recordDecision(ctx, actor, domain.ActionKYCApprove, userID, domain.ActivityFailure, notes)
		return err
	}
	s.invalidateCache(ctx)
	s.recordDecision(ctx, actor, domain.ActionKYCApprove, userID, domain.ActivitySuccess, notes)
	return nil
}

// Reject marks the user's verification as rejected with the moderator's
// reason. A reason is mandatory.
func (s *KYCService) Reject(ctx context.Context, actor auth.Identity, userID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	if err := s.repo.Reject(ctx, userID, reason); err != nil {
		s.recordDecision(ctx, actor, domain.ActionKYCReject, userID, domain.ActivityFailure, reason)
		return err
	}
	s.invalidateCache(ctx)
	s.recordDecision(ctx, actor, domain.ActionKYCReject, userID, domain.ActivitySuccess, reason)
	return nil
}

// DocumentURL returns a short-lived signed URL for a supporting document.
func (s *KYCService) DocumentURL(ctx context.Context, key string) (string, error) {
	url, err := s.signer.SignedDocumentURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign document url: %w", err)
	}
	return url, nil
}

func (s *KYCService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("pending review cache invalidation failed", zap.Error(err))
	}
}

func (s *KYCService) recordDecision(ctx context.Context, actor auth.Identity, action domain.ActivityAction, userID uuid.UUID, result domain.ActivityResult, note string) {
	if s.activity == nil {
		return
	}
	event := domain.NewActivityEvent(actor.UserID, string(actor.Role), action, "kyc_verification", userID.String())
	event.Result = result
	if note != "" {
		if detail, err := json.Marshal(map[string]string{"note": note}); err == nil {
			event.Detail = detail
		}
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record kyc decision",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
