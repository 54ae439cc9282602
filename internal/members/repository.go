package members

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/internal/rbac"
)

// Repository handles member persistence and role assignment. It is also the
// rbac.MembershipSource: authorization always reads the committed membership
// from here, never from the cache.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a members repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a member.
func (r *Repository) Create(ctx context.Context, m *models.Member) error {
	const q = `INSERT INTO members (community_id, user_id, status, is_owner, nickname)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, joined_at, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, m.CommunityID, m.UserID, m.Status, m.IsOwner, m.Nickname).
		Scan(&m.ID, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
}

// GetByUserAndCommunity returns the membership with roles, or nil if absent.
func (r *Repository) GetByUserAndCommunity(ctx context.Context, userID, communityID uuid.UUID) (*models.Member, error) {
	const q = `SELECT id, community_id, user_id, status, is_owner, nickname,
			joined_at, last_active_at, created_at, updated_at
		FROM members WHERE user_id = $1 AND community_id = $2`
	var m models.Member
	err := r.pool.QueryRow(ctx, q, userID, communityID).
		Scan(&m.ID, &m.CommunityID, &m.UserID, &m.Status, &m.IsOwner, &m.Nickname,
			&m.JoinedAt, &m.LastActiveAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	roles, err := r.memberRoles(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.Roles = roles
	return &m, nil
}

// GetMembership implements rbac.MembershipSource: the minimal snapshot the
// permission resolver needs, or nil when the user is not a member.
func (r *Repository) GetMembership(ctx context.Context, userID, communityID uuid.UUID) (*rbac.Membership, error) {
	const q = `SELECT id, status, is_owner FROM members WHERE user_id = $1 AND community_id = $2`
	var (
		memberID uuid.UUID
		status   string
		isOwner  bool
	)
	err := r.pool.QueryRow(ctx, q, userID, communityID).Scan(&memberID, &status, &isOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	membership := &rbac.Membership{IsOwner: isOwner, Status: status}
	if isOwner {
		return membership, nil
	}
	roles, err := r.memberRoles(ctx, memberID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		membership.Roles = append(membership.Roles, rbac.RoleGrant{Name: role.Name, Permissions: role.Permissions})
	}
	return membership, nil
}

func (r *Repository) memberRoles(ctx context.Context, memberID uuid.UUID) ([]models.Role, error) {
	const q = `SELECT r.id, r.community_id, r.name, r.description, r.color, r.permissions,
			r.is_default, r.priority, r.created_at, r.updated_at
		FROM roles r INNER JOIN member_roles mr ON mr.role_id = r.id
		WHERE mr.member_id = $1 ORDER BY r.priority DESC, r.name`
	rows, err := r.pool.Query(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.CommunityID, &role.Name, &role.Description, &role.Color,
			&role.Permissions, &role.IsDefault, &role.Priority, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListByCommunity returns a page of members with roles, optionally filtered
// by status, and the total count.
func (r *Repository) ListByCommunity(ctx context.Context, communityID uuid.UUID, offset, limit int, status string) ([]*models.Member, int, error) {
	const q = `SELECT id, community_id, user_id, status, is_owner, nickname,
			joined_at, last_active_at, created_at, updated_at
		FROM members
		WHERE community_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY joined_at ASC OFFSET $3 LIMIT $4`
	rows, err := r.pool.Query(ctx, q, communityID, status, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.CommunityID, &m.UserID, &m.Status, &m.IsOwner, &m.Nickname,
			&m.JoinedAt, &m.LastActiveAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, m := range list {
		roles, err := r.memberRoles(ctx, m.ID)
		if err != nil {
			return nil, 0, err
		}
		m.Roles = roles
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM members WHERE community_id = $1 AND ($2 = '' OR status = $2)`,
		communityID, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// CountActive returns the number of active members in a community.
func (r *Repository) CountActive(ctx context.Context, communityID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM members WHERE community_id = $1 AND status = 'active'`, communityID).Scan(&n)
	return n, err
}

// UpdateFields carries the mutable member fields; nil means unchanged.
type UpdateFields struct {
	Status   *string
	Nickname *string
}

// Update applies the non-nil fields.
func (r *Repository) Update(ctx context.Context, memberID uuid.UUID, f UpdateFields) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE members SET status = COALESCE($2, status), nickname = COALESCE($3, nickname),
			updated_at = NOW() WHERE id = $1`,
		memberID, f.Status, f.Nickname)
	return err
}

// Delete removes a member; role assignments cascade.
func (r *Repository) Delete(ctx context.Context, memberID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, memberID)
	return err
}

// AssignRole grants a role to a member. Re-assigning is a no-op.
func (r *Repository) AssignRole(ctx context.Context, memberID, roleID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO member_roles (member_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		memberID, roleID)
	return err
}

// ClearRoles removes every role assignment from a member.
func (r *Repository) ClearRoles(ctx context.Context, memberID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM member_roles WHERE member_id = $1`, memberID)
	return err
}
