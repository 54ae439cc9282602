package posts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-community/backend/internal/models"
)

const postColumns = `id, community_id, channel_id, author_id, title, content, status,
	is_pinned, media_urls, like_count, comment_count, view_count,
	published_at, created_at, updated_at`

// Repository handles post persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a posts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.CommunityID, &p.ChannelID, &p.AuthorID, &p.Title, &p.Content, &p.Status,
		&p.IsPinned, &p.MediaURLs, &p.LikeCount, &p.CommentCount, &p.ViewCount,
		&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a post.
func (r *Repository) Create(ctx context.Context, p *models.Post) error {
	const q = `INSERT INTO posts (community_id, channel_id, author_id, title, content, status,
			is_pinned, media_urls, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.CommunityID, p.ChannelID, p.AuthorID, p.Title, p.Content,
		p.Status, p.IsPinned, p.MediaURLs, p.PublishedAt).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns a post, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
}

// ListByCommunity returns a page of published posts, pinned first, newest
// first, optionally scoped to a channel, plus the total count.
func (r *Repository) ListByCommunity(ctx context.Context, communityID uuid.UUID, channelID *uuid.UUID, offset, limit int) ([]*models.Post, int, error) {
	const q = `SELECT ` + postColumns + ` FROM posts
		WHERE community_id = $1 AND status = 'published'
			AND ($2::uuid IS NULL OR channel_id = $2)
		ORDER BY is_pinned DESC, published_at DESC
		OFFSET $3 LIMIT $4`
	rows, err := r.pool.Query(ctx, q, communityID, channelID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.CommunityID, &p.ChannelID, &p.AuthorID, &p.Title, &p.Content, &p.Status,
			&p.IsPinned, &p.MediaURLs, &p.LikeCount, &p.CommentCount, &p.ViewCount,
			&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM posts WHERE community_id = $1 AND status = 'published'
			AND ($2::uuid IS NULL OR channel_id = $2)`,
		communityID, channelID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateFields carries the mutable post fields; nil means unchanged.
type UpdateFields struct {
	Title     *string
	Content   *string
	Status    *string
	IsPinned  *bool
	MediaURLs *[]string
}

// Update applies the non-nil fields and returns the updated post.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Post, error) {
	const q = `UPDATE posts SET
			title = COALESCE($2, title),
			content = COALESCE($3, content),
			status = COALESCE($4, status),
			is_pinned = COALESCE($5, is_pinned),
			media_urls = COALESCE($6, media_urls),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + postColumns
	return scanPost(r.pool.QueryRow(ctx, q, id, f.Title, f.Content, f.Status, f.IsPinned, f.MediaURLs))
}

// Delete removes a post.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	return err
}

// IncrementViewCount bumps a post's view counter atomically.
func (r *Repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}
