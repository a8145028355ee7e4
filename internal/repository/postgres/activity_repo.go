package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodpass/backoffice/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityRepository implements append-only storage for admin activity
// events. No updates or deletes happen except retention purges.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// CreateEvent inserts a new activity event.
func (r *ActivityRepository) CreateEvent(ctx context.Context, event *domain.ActivityEvent) error {
	const query = `
		INSERT INTO activity_events (
			event_id, actor_id, actor_role, action, target_type, target_id,
			result, detail, ip_address, signature, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`
	_, err := r.pool.Exec(ctx, query,
		event.EventID, event.ActorID, event.ActorRole, event.Action, event.TargetType, event.TargetID,
		event.Result, event.Detail, event.IPAddress, event.Signature, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}
	return nil
}

// GetEvents retrieves activity events based on filter
func (r *ActivityRepository) GetEvents(ctx context.Context, filter domain.ActivityFilter) (*domain.ActivityPage, error) {
	query := `
		SELECT event_id, actor_id, actor_role, action, target_type, target_id,
		       result, detail, ip_address, signature, created_at
		FROM activity_events
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.ActorID != nil {
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, *filter.ActorID)
		argIdx++
	}
	if filter.Action != nil {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, *filter.Action)
		argIdx++
	}
	if filter.TargetID != nil {
		query += fmt.Sprintf(" AND target_id = $%d", argIdx)
		args = append(args, *filter.TargetID)
		argIdx++
	}
	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filter.StartTime)
		argIdx++
	}
	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filter.EndTime)
		argIdx++
	}

	// Count total
	countQuery := "SELECT COUNT(*) FROM (" + query + ") as total"
	var totalCount int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count activity events: %w", err)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ActivityEvent
	for rows.Next() {
		var e domain.ActivityEvent
		err := rows.Scan(
			&e.EventID, &e.ActorID, &e.ActorRole, &e.Action, &e.TargetType, &e.TargetID,
			&e.Result, &e.Detail, &e.IPAddress, &e.Signature, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity events: %w", err)
	}

	return &domain.ActivityPage{
		Events:     events,
		TotalCount: totalCount,
		PageSize:   filter.Limit,
		HasMore:    totalCount > int64(filter.Offset+filter.Limit),
	}, nil
}

// EventsOlderThan returns events created before cutoff, oldest first, for
// archival.
func (r *ActivityRepository) EventsOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.ActivityEvent, error) {
	const query = `
		SELECT event_id, actor_id, actor_role, action, target_type, target_id,
		       result, detail, ip_address, signature, created_at
		FROM activity_events
		WHERE created_at < $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired activity events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ActivityEvent
	for rows.Next() {
		var e domain.ActivityEvent
		err := rows.Scan(
			&e.EventID, &e.ActorID, &e.ActorRole, &e.Action, &e.TargetType, &e.TargetID,
			&e.Result, &e.Detail, &e.IPAddress, &e.Signature, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// PurgeOlderThan deletes events created before cutoff after they have been
// archived. Returns the number of rows removed.
func (r *ActivityRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activity_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge activity events: %w", err)
	}
	return tag.RowsAffected(), nil
}
