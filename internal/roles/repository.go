package roles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-community/backend/internal/models"
)

const roleColumns = `id, community_id, name, description, color, permissions,
	is_default, priority, created_at, updated_at`

// Repository handles role persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a roles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRole(row pgx.Row) (*models.Role, error) {
	var r models.Role
	err := row.Scan(&r.ID, &r.CommunityID, &r.Name, &r.Description, &r.Color, &r.Permissions,
		&r.IsDefault, &r.Priority, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// Create inserts a role.
func (r *Repository) Create(ctx context.Context, role *models.Role) error {
	const q = `INSERT INTO roles (community_id, name, description, color, permissions, is_default, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, role.CommunityID, role.Name, role.Description, role.Color,
		role.Permissions, role.IsDefault, role.Priority).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
}

// GetByID returns a role, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// GetByName returns a role by community-scoped name, or nil if absent.
func (r *Repository) GetByName(ctx context.Context, communityID uuid.UUID, name string) (*models.Role, error) {
	return scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE community_id = $1 AND name = $2`, communityID, name))
}

// GetDefault returns the community's default role, or nil if none is marked.
func (r *Repository) GetDefault(ctx context.Context, communityID uuid.UUID) (*models.Role, error) {
	return scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE community_id = $1 AND is_default ORDER BY created_at LIMIT 1`,
		communityID))
}

// ListByCommunity returns every role in a community, highest priority first.
func (r *Repository) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE community_id = $1 ORDER BY priority DESC, name`, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.CommunityID, &role.Name, &role.Description, &role.Color,
			&role.Permissions, &role.IsDefault, &role.Priority, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &role)
	}
	return list, rows.Err()
}

// UpdateFields carries the mutable role fields; nil means unchanged.
type UpdateFields struct {
	Name        *string
	Description *string
	Color       *string
	Permissions *[]string
	Priority    *int
}

// Update applies the non-nil fields and returns the updated role.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Role, error) {
	const q = `UPDATE roles SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			color = COALESCE($4, color),
			permissions = COALESCE($5, permissions),
			priority = COALESCE($6, priority),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + roleColumns
	return scanRole(r.pool.QueryRow(ctx, q, id, f.Name, f.Description, f.Color, f.Permissions, f.Priority))
}

// Delete removes a role; member assignments cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return err
}
