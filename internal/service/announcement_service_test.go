package service

import (
	"context"
	"testing"

	"github.com/goodpass/backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAnnouncementRepo struct {
	announcements []domain.Announcement
	deleted       []int64
	err           error
}

func (f *fakeAnnouncementRepo) List(context.Context) ([]domain.Announcement, error) {
	return f.announcements, f.err
}

func (f *fakeAnnouncementRepo) Create(_ context.Context, a *domain.Announcement) error {
	if f.err != nil {
		return f.err
	}
	a.ID = int64(len(f.announcements) + 1)
	f.announcements = append(f.announcements, *a)
	return nil
}

func (f *fakeAnnouncementRepo) Update(_ context.Context, a *domain.Announcement) error {
	return f.err
}

func (f *fakeAnnouncementRepo) Delete(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func TestCreateStampsActorAndRecordsActivity(t *testing.T) {
	repo := &fakeAnnouncementRepo{}
	recorder := &fakeRecorder{}
	svc := NewAnnouncementService(repo, recorder, zap.NewNop())
	actor := testActor()

	a := &domain.Announcement{Title: "Scheduled maintenance", Body: "Sunday 02:00 UTC", Audience: "all"}
	require.NoError(t, svc.Create(context.Background(), actor, a))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, actor.UserID, a.CreatedBy)
	assert.False(t, a.CreatedAt.IsZero())

	require.Len(t, recorder.events, 1)
	assert.Equal(t, domain.ActionAnnouncementCreate, recorder.events[0].Action)
	assert.Equal(t, "1", recorder.events[0].TargetID)
}

func TestDeleteRecordsActivity(t *testing.T) {
	repo := &fakeAnnouncementRepo{}
	recorder := &fakeRecorder{}
	svc := NewAnnouncementService(repo, recorder, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), testActor(), 42))
	assert.Equal(t, []int64{42}, repo.deleted)
	require.Len(t, recorder.events, 1)
	assert.Equal(t, domain.ActionAnnouncementDelete, recorder.events[0].Action)
}

func TestFailedUpdateRecordsNothing(t *testing.T) {
	repo := &fakeAnnouncementRepo{err: assert.AnError}
	recorder := &fakeRecorder{}
	svc := NewAnnouncementService(repo, recorder, zap.NewNop())

	err := svc.Update(context.Background(), testActor(), &domain.Announcement{ID: 1})
	assert.Error(t, err)
	assert.Empty(t, recorder.events)
}
