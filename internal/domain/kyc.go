package domain

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus represents the status of a KYC verification
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusVerified KYCStatus = "verified"
	KYCStatusRejected KYCStatus = "rejected"
)

// User profile statuses
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

// UserProfile is the slice of a platform user consumed by the back office
type UserProfile struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Phone          string    `json:"phone" db:"phone"`
	Role           string    `json:"role" db:"role"`
	Status         string    `json:"status" db:"status"`
	IsKYCCompleted bool      `json:"is_kyc_completed" db:"is_kyc_completed"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// KYCVerification represents a single KYC verification record.
// Data is the decrypted kyc_data JSON payload; it is stored encrypted.
type KYCVerification struct {
	ID         int64      `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	Status     KYCStatus  `json:"kyc_status" db:"kyc_status"`
	Data       []byte     `json:"kyc_data,omitempty" db:"kyc_data"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" db:"verified_at"`
}

// IsDecided reports whether the verification reached a terminal state.
func (k KYCVerification) IsDecided() bool {
	return k.Status == KYCStatusVerified || k.Status == KYCStatusRejected
}

// SupportingDocument is a document uploaded by a user in support of KYC.
// FileURL is a storage key; callers must resolve it to a short-lived signed
// URL before handing it to a client.
type SupportingDocument struct {
	ID          int64     `json:"id" db:"id"`
	Description string    `json:"description" db:"description"`
	FileURL     string    `json:"file_url" db:"file_url"`
	FileType    string    `json:"file_type" db:"file_type"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
	UploadedBy  uuid.UUID `json:"uploaded_by" db:"uploaded_by"`
	IsDeleted   bool      `json:"is_deleted" db:"is_deleted"`
}

// PendingReview pairs a user awaiting KYC with their verification record and
// supporting documents.
type PendingReview struct {
	User         UserProfile          `json:"user"`
	Verification KYCVerification      `json:"kyc"`
	Documents    []SupportingDocument `json:"documents"`
}

// PlaceholderVerification builds the synthetic pending record shown for a
// user who has not submitted KYC yet. ID 0 marks it as display-only; it is
// never persisted.
func PlaceholderVerification(user UserProfile) KYCVerification {
	return KYCVerification{
		ID:        0,
		UserID:    user.ID,
		Status:    KYCStatusPending,
		CreatedAt: user.CreatedAt,
	}
}
