package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goodpass/backoffice/internal/crypto"
	"github.com/goodpass/backoffice/internal/domain"
	"github.com/goodpass/backoffice/internal/repository/elasticsearch"
	"github.com/goodpass/backoffice/internal/repository/postgres"
	"github.com/goodpass/backoffice/internal/repository/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityService records the tamper-evident trail of back-office actions.
// Postgres is the critical path; Elasticsearch indexing and Kafka publishing
// are best effort and never fail a moderator's action.
type ActivityService struct {
	repo      *postgres.ActivityRepository
	index     *elasticsearch.ActivityIndex
	store     *s3.DocumentStore
	publisher ActivityEventPublisher
	encryptor *crypto.FieldEncryptor
	logger    *zap.Logger
}

// ActivityEventPublisher publishes recorded events to the event stream.
type ActivityEventPublisher interface {
	Publish(event *domain.ActivityEvent) error
}

func NewActivityService(
	repo *postgres.ActivityRepository,
	index *elasticsearch.ActivityIndex,
	store *s3.DocumentStore,
	publisher ActivityEventPublisher,
	encryptor *crypto.FieldEncryptor,
	logger *zap.Logger,
) *ActivityService {
	return &ActivityService{
		repo:      repo,
		index:     index,
		store:     store,
		publisher: publisher,
		encryptor: encryptor,
		logger:    logger,
	}
}

// Record signs and persists an activity event. The Postgres write must
// succeed; secondary sinks log and continue on failure.
func (s *ActivityService) Record(ctx context.Context, event *domain.ActivityEvent) error {
	event.Signature = s.encryptor.SignActivity(
		event.EventID.String(),
		event.ActorID.String(),
		string(event.Action),
		event.CreatedAt.Format(time.RFC3339),
		string(event.Result),
	)

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		s.logger.Error("failed to persist activity event",
			zap.String("event_id", event.EventID.String()),
			zap.String("action", string(event.Action)),
			zap.Error(err))
		return fmt.Errorf("failed to record activity event: %w", err)
	}

	if s.index != nil {
		go func(e *domain.ActivityEvent) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("panic while indexing activity event", zap.Any("panic", r))
				}
			}()
			indexCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.index.IndexEvent(indexCtx, e); err != nil {
				s.logger.Warn("failed to index activity event",
					zap.String("event_id", e.EventID.String()),
					zap.Error(err))
			}
		}(event)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(event); err != nil {
			s.logger.Warn("failed to publish activity event",
				zap.String("event_id", event.EventID.String()),
				zap.Error(err))
		}
	}

	return nil
}

// List returns a page of events from Postgres, verifying each signature.
// Events whose signature does not verify are flagged, not hidden.
func (s *ActivityService) List(ctx context.Context, filter domain.ActivityFilter) (*domain.ActivityPage, error) {
	page, err := s.repo.GetEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity events: %w", err)
	}

	for _, event := range page.Events {
		event.SignatureValid = s.encryptor.VerifyActivity(
			event.EventID.String(),
			event.ActorID.String(),
			string(event.Action),
			event.CreatedAt.Format(time.RFC3339),
			string(event.Result),
			event.Signature,
		)
		if !event.SignatureValid {
			s.logger.Warn("activity event signature mismatch",
				zap.String("event_id", event.EventID.String()))
		}
	}

	return page, nil
}

// Search performs a full-text query against the Elasticsearch mirror.
func (s *ActivityService) Search(ctx context.Context, query string, limit int) ([]*domain.ActivityEvent, error) {
	if s.index == nil {
		return nil, fmt.Errorf("activity search is not available")
	}
	events, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity events: %w", err)
	}
	return events, nil
}

// ArchiveExpired uploads events older than the retention window to S3, then
// purges them from Postgres. Purge only runs after a successful upload.
func (s *ActivityService) ArchiveExpired(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)

	events, err := s.repo.EventsOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to load expired activity events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	batchID := uuid.New().String()
	if err := s.store.ArchiveActivityBatch(ctx, events, batchID); err != nil {
		return fmt.Errorf("failed to archive activity events: %w", err)
	}

	purged, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge archived activity events: %w", err)
	}

	s.logger.Info("archived expired activity events",
		zap.String("batch_id", batchID),
		zap.Int64("purged", purged),
		zap.Time("cutoff", cutoff))
	return nil
}
