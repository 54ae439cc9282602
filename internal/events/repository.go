package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-community/backend/internal/models"
)

const eventColumns = `id, community_id, creator_id, title, description, status,
	starts_at, ends_at, location, online_url, max_attendees, attendee_count,
	cover_url, metadata, created_at, updated_at`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.CommunityID, &e.CreatorID, &e.Title, &e.Description, &e.Status,
		&e.StartsAt, &e.EndsAt, &e.Location, &e.OnlineURL, &e.MaxAttendees, &e.AttendeeCount,
		&e.CoverURL, &e.Metadata, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (community_id, creator_id, title, description, status,
			starts_at, ends_at, location, online_url, max_attendees, cover_url, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.CommunityID, e.CreatorID, e.Title, e.Description, e.Status,
		e.StartsAt, e.EndsAt, e.Location, e.OnlineURL, e.MaxAttendees, e.CoverURL, e.Metadata).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// ListByCommunity returns a page of events, soonest first, optionally only
// upcoming ones, plus the total count.
func (r *Repository) ListByCommunity(ctx context.Context, communityID uuid.UUID, upcomingOnly bool, offset, limit int) ([]*models.Event, int, error) {
	const q = `SELECT ` + eventColumns + ` FROM events
		WHERE community_id = $1 AND status <> 'cancelled'
			AND (NOT $2 OR starts_at >= NOW())
		ORDER BY starts_at ASC OFFSET $3 LIMIT $4`
	rows, err := r.pool.Query(ctx, q, communityID, upcomingOnly, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.CommunityID, &e.CreatorID, &e.Title, &e.Description, &e.Status,
			&e.StartsAt, &e.EndsAt, &e.Location, &e.OnlineURL, &e.MaxAttendees, &e.AttendeeCount,
			&e.CoverURL, &e.Metadata, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM events WHERE community_id = $1 AND status <> 'cancelled'
			AND (NOT $2 OR starts_at >= NOW())`,
		communityID, upcomingOnly).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// CountUpcoming returns the number of scheduled future events.
func (r *Repository) CountUpcoming(ctx context.Context, communityID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM events WHERE community_id = $1 AND status = 'scheduled' AND starts_at >= NOW()`,
		communityID).Scan(&n)
	return n, err
}

// UpdateFields carries the mutable event fields; nil means unchanged.
type UpdateFields struct {
	Title        *string
	Description  *string
	Status       *string
	StartsAt     *time.Time
	EndsAt       *time.Time
	Location     *string
	OnlineURL    *string
	MaxAttendees *int
	CoverURL     *string
}

// Update applies the non-nil fields and returns the updated event.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Event, error) {
	const q = `UPDATE events SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			status = COALESCE($4, status),
			starts_at = COALESCE($5, starts_at),
			ends_at = COALESCE($6, ends_at),
			location = COALESCE($7, location),
			online_url = COALESCE($8, online_url),
			max_attendees = COALESCE($9, max_attendees),
			cover_url = COALESCE($10, cover_url),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, q, id, f.Title, f.Description, f.Status, f.StartsAt,
		f.EndsAt, f.Location, f.OnlineURL, f.MaxAttendees, f.CoverURL))
}

// Delete removes an event.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}
