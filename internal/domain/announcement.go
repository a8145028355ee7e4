package domain

import (
	"time"

	"github.com/google/uuid"
)

// Announcement is a platform-wide notice managed from the back office.
type Announcement struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Audience  string    `json:"audience" db:"audience"` // all, individual, business
	Published bool      `json:"published" db:"published"`
	CreatedBy uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
