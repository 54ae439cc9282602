package communities

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-community/backend/internal/models"
)

// Repository handles community persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a communities repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const communityColumns = `id, name, slug, description, community_type, status, owner_id,
	avatar_url, banner_url, settings, member_count, post_count, created_at, updated_at`

func scanCommunity(row pgx.Row) (*models.Community, error) {
	var c models.Community
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CommunityType, &c.Status,
		&c.OwnerID, &c.AvatarURL, &c.BannerURL, &c.Settings, &c.MemberCount, &c.PostCount,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a community.
func (r *Repository) Create(ctx context.Context, c *models.Community) error {
	const q = `INSERT INTO communities (name, slug, description, community_type, status, owner_id,
			avatar_url, banner_url, settings, member_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, '{}'::jsonb), $10)
		RETURNING id, settings, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, c.Name, c.Slug, c.Description, c.CommunityType, c.Status,
		c.OwnerID, c.AvatarURL, c.BannerURL, c.Settings, c.MemberCount).
		Scan(&c.ID, &c.Settings, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID returns a community by id, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	return scanCommunity(r.pool.QueryRow(ctx,
		`SELECT `+communityColumns+` FROM communities WHERE id = $1`, id))
}

// GetBySlug returns a community by slug, or nil if absent.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	return scanCommunity(r.pool.QueryRow(ctx,
		`SELECT `+communityColumns+` FROM communities WHERE slug = $1`, slug))
}

// ListActive returns a page of active communities and the total count.
func (r *Repository) ListActive(ctx context.Context, offset, limit int) ([]*models.Community, int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+communityColumns+` FROM communities
		WHERE status = 'active' ORDER BY member_count DESC, created_at DESC
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectCommunities(rows)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM communities WHERE status = 'active'`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Search returns active communities whose name or slug matches the query.
func (r *Repository) Search(ctx context.Context, query string, offset, limit int) ([]*models.Community, int, error) {
	pattern := "%" + query + "%"
	rows, err := r.pool.Query(ctx,
		`SELECT `+communityColumns+` FROM communities
		WHERE status = 'active' AND (name ILIKE $1 OR slug ILIKE $1)
		ORDER BY member_count DESC OFFSET $2 LIMIT $3`, pattern, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectCommunities(rows)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM communities
		WHERE status = 'active' AND (name ILIKE $1 OR slug ILIKE $1)`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func collectCommunities(rows pgx.Rows) ([]*models.Community, error) {
	defer rows.Close()
	var list []*models.Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// UpdateFields carries the mutable community fields; nil means unchanged.
type UpdateFields struct {
	Name          *string
	Description   *string
	CommunityType *string
	Status        *string
	AvatarURL     *string
	BannerURL     *string
	Settings      []byte
}

// Update applies the non-nil fields and returns the updated community, or
// nil if absent.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Community, error) {
	const q = `UPDATE communities SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			community_type = COALESCE($4, community_type),
			status = COALESCE($5, status),
			avatar_url = COALESCE($6, avatar_url),
			banner_url = COALESCE($7, banner_url),
			settings = COALESCE($8, settings),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + communityColumns
	return scanCommunity(r.pool.QueryRow(ctx, q, id, f.Name, f.Description, f.CommunityType,
		f.Status, f.AvatarURL, f.BannerURL, f.Settings))
}

// Delete removes a community; dependent rows cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM communities WHERE id = $1`, id)
	return err
}

// IncrementMemberCount atomically adjusts member_count by delta. Concurrent
// writers must never read-modify-write this counter.
func (r *Repository) IncrementMemberCount(ctx context.Context, id uuid.UUID, delta int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE communities SET member_count = GREATEST(member_count + $2, 0), updated_at = NOW() WHERE id = $1`,
		id, delta)
	return err
}

// IncrementPostCount atomically adjusts post_count by delta.
func (r *Repository) IncrementPostCount(ctx context.Context, id uuid.UUID, delta int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE communities SET post_count = GREATEST(post_count + $2, 0), updated_at = NOW() WHERE id = $1`,
		id, delta)
	return err
}
