package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodpass/backoffice/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAnnouncementNotFound is returned for updates/deletes of unknown rows.
var ErrAnnouncementNotFound = errors.New("announcement not found")

// AnnouncementRepository implements storage for platform announcements.
type AnnouncementRepository struct {
	pool *pgxpool.Pool
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(pool *pgxpool.Pool) *AnnouncementRepository {
	return &AnnouncementRepository{pool: pool}
}

// List returns all announcements, newest first.
func (r *AnnouncementRepository) List(ctx context.Context) ([]domain.Announcement, error) {
	const query = `
		SELECT id, title, body, audience, published, created_by, created_at, updated_at
		FROM announcements
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	var out []domain.Announcement
	for rows.Next() {
		var a domain.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Audience, &a.Published, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts an announcement and returns its assigned id.
func (r *AnnouncementRepository) Create(ctx context.Context, a *domain.Announcement) error {
	const query = `
		INSERT INTO announcements (title, body, audience, published, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query, a.Title, a.Body, a.Audience, a.Published, a.CreatedBy, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert announcement: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, a *domain.Announcement) error {
	const query = `
		UPDATE announcements
		SET title = $2, body = $3, audience = $4, published = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, a.ID, a.Title, a.Body, a.Audience, a.Published, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update announcement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete announcement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}
