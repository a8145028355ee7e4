package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goodpass/backoffice/internal/auth"
	"github.com/goodpass/backoffice/internal/domain"
	"go.uber.org/zap"
)

// AnnouncementRepository is the persistence surface for announcements.
type AnnouncementRepository interface {
	List(ctx context.Context) ([]domain.Announcement, error)
	Create(ctx context.Context, a *domain.Announcement) error
	Update(ctx context.Context, a *domain.Announcement) error
	Delete(ctx context.Context, id int64) error
}

// AnnouncementService manages platform-wide notices and records every
// change to the activity trail.
type AnnouncementService struct {
	repo     AnnouncementRepository
	activity ActivityRecorder
	logger   *zap.Logger
}

func NewAnnouncementService(repo AnnouncementRepository, activity ActivityRecorder, logger *zap.Logger) *AnnouncementService {
	return &AnnouncementService{repo: repo, activity: activity, logger: logger}
}

func (s *AnnouncementService) List(ctx context.Context) ([]domain.Announcement, error) {
	announcements, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return announcements, nil
}

func (s *AnnouncementService) Create(ctx context.Context, actor auth.Identity, a *domain.Announcement) error {
	a.CreatedBy = actor.UserID
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	if err := s.repo.Create(ctx, a); err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	s.recordChange(ctx, actor, domain.ActionAnnouncementCreate, a.ID)
	return nil
}

func (s *AnnouncementService) Update(ctx context.Context, actor auth.Identity, a *domain.Announcement) error {
	a.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return err
	}
	s.recordChange(ctx, actor, domain.ActionAnnouncementUpdate, a.ID)
	return nil
}

func (s *AnnouncementService) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordChange(ctx, actor, domain.ActionAnnouncementDelete, id)
	return nil
}

func (s *AnnouncementService) recordChange(ctx context.Context, actor auth.Identity, action domain.ActivityAction, id int64) {
	if s.activity == nil {
		return
	}
	event := domain.NewActivityEvent(actor.UserID, string(actor.Role), action, "announcement", strconv.FormatInt(id, 10))
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record announcement change",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
