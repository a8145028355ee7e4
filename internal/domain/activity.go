package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction represents the type of admin action being recorded
type ActivityAction string

const (
	ActionKYCApprove         ActivityAction = "KYC_APPROVE"
	ActionKYCReject          ActivityAction = "KYC_REJECT"
	ActionImportCommit       ActivityAction = "IMPORT_COMMIT"
	ActionAnnouncementCreate ActivityAction = "ANNOUNCEMENT_CREATE"
	ActionAnnouncementUpdate ActivityAction = "ANNOUNCEMENT_UPDATE"
	ActionAnnouncementDelete ActivityAction = "ANNOUNCEMENT_DELETE"
)

// ActivityResult represents the outcome of a recorded action
type ActivityResult string

const (
	ActivitySuccess ActivityResult = "SUCCESS"
	ActivityFailure ActivityResult = "FAILURE"
)

// ActivityEvent is an admin action recorded for the activity-log screen.
// Events are append-only and HMAC-signed for tamper detection.
type ActivityEvent struct {
	EventID    uuid.UUID      `json:"event_id" db:"event_id"`
	ActorID    uuid.UUID      `json:"actor_id" db:"actor_id"`
	ActorRole  string         `json:"actor_role" db:"actor_role"`
	Action     ActivityAction `json:"action" db:"action"`
	TargetType string         `json:"target_type" db:"target_type"`
	TargetID   string         `json:"target_id" db:"target_id"`
	Result     ActivityResult `json:"result" db:"result"`
	Detail     []byte         `json:"detail,omitempty" db:"detail"` // JSON blob
	IPAddress  string         `json:"ip_address" db:"ip_address"`
	Signature  string         `json:"signature" db:"signature"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`

	// SignatureValid is computed at read time, never stored.
	SignatureValid bool `json:"signature_valid" db:"-"`
}

// NewActivityEvent creates an event with a fresh ID and timestamp.
func NewActivityEvent(actorID uuid.UUID, actorRole string, action ActivityAction, targetType, targetID string) *ActivityEvent {
	return &ActivityEvent{
		EventID:    uuid.New(),
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Result:     ActivitySuccess,
		CreatedAt:  time.Now().UTC(),
	}
}

// ActivityFilter for querying the activity log
type ActivityFilter struct {
	ActorID   *uuid.UUID
	Action    *ActivityAction
	TargetID  *string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// ActivityPage represents paginated activity events
type ActivityPage struct {
	Events     []*ActivityEvent `json:"events"`
	TotalCount int64            `json:"total_count"`
	PageSize   int              `json:"page_size"`
	HasMore    bool             `json:"has_more"`
}
