package channels

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-community/backend/internal/models"
)

const channelColumns = `id, community_id, name, description, channel_type,
	is_default, position, settings, created_at, updated_at`

// Repository handles channel persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a channels repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var ch models.Channel
	err := row.Scan(&ch.ID, &ch.CommunityID, &ch.Name, &ch.Description, &ch.ChannelType,
		&ch.IsDefault, &ch.Position, &ch.Settings, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ch, nil
}

// Create inserts a channel.
func (r *Repository) Create(ctx context.Context, ch *models.Channel) error {
	const q = `INSERT INTO channels (community_id, name, description, channel_type, is_default, position, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, ch.CommunityID, ch.Name, ch.Description, ch.ChannelType,
		ch.IsDefault, ch.Position, ch.Settings).
		Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
}

// GetByID returns a channel, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	return scanChannel(r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id))
}

// GetByName returns a channel by community-scoped name, or nil if absent.
func (r *Repository) GetByName(ctx context.Context, communityID uuid.UUID, name string) (*models.Channel, error) {
	return scanChannel(r.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE community_id = $1 AND name = $2`, communityID, name))
}

// ListByCommunity returns every channel in a community, ordered by position.
func (r *Repository) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE community_id = $1 ORDER BY position, name`, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.CommunityID, &ch.Name, &ch.Description, &ch.ChannelType,
			&ch.IsDefault, &ch.Position, &ch.Settings, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &ch)
	}
	return list, rows.Err()
}

// UpdateFields carries the mutable channel fields; nil means unchanged.
type UpdateFields struct {
	Name        *string
	Description *string
	Position    *int
	Settings    []byte
}

// Update applies the non-nil fields and returns the updated channel.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Channel, error) {
	const q = `UPDATE channels SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			position = COALESCE($4, position),
			settings = COALESCE($5, settings),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + channelColumns
	return scanChannel(r.pool.QueryRow(ctx, q, id, f.Name, f.Description, f.Position, f.Settings))
}

// Delete removes a channel; posts in it keep a NULL channel reference.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}
