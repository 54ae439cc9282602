package donations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-community/backend/internal/models"
)

const donationColumns = `id, community_id, donor_id, amount_cents, currency,
	message, status, transaction_id, is_anonymous, created_at, updated_at`

// Repository handles donation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a donations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a donation.
func (r *Repository) Create(ctx context.Context, d *models.Donation) error {
	const q = `INSERT INTO donations (community_id, donor_id, amount_cents, currency,
			message, status, transaction_id, is_anonymous)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, d.CommunityID, d.DonorID, d.AmountCents, d.Currency,
		d.Message, d.Status, d.TransactionID, d.IsAnonymous).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// GetByID returns a donation, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var d models.Donation
	err := r.pool.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id).
		Scan(&d.ID, &d.CommunityID, &d.DonorID, &d.AmountCents, &d.Currency,
			&d.Message, &d.Status, &d.TransactionID, &d.IsAnonymous, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// ListByCommunity returns a page of completed donations, newest first, plus
// the total count.
func (r *Repository) ListByCommunity(ctx context.Context, communityID uuid.UUID, offset, limit int) ([]*models.Donation, int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+donationColumns+` FROM donations
			WHERE community_id = $1 AND status = 'completed'
			ORDER BY created_at DESC OFFSET $2 LIMIT $3`,
		communityID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.Donation
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(&d.ID, &d.CommunityID, &d.DonorID, &d.AmountCents, &d.Currency,
			&d.Message, &d.Status, &d.TransactionID, &d.IsAnonymous, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM donations WHERE community_id = $1 AND status = 'completed'`,
		communityID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// TopDonor is one row of a community's donor leaderboard.
type TopDonor struct {
	DonorID     uuid.UUID `json:"donor_id"`
	TotalCents  int64     `json:"total_cents"`
	Donations   int       `json:"donations"`
	IsAnonymous bool      `json:"is_anonymous"`
}

// TopDonors aggregates completed donations per donor. Donors who ever gave
// anonymously are flagged so callers can mask them.
func (r *Repository) TopDonors(ctx context.Context, communityID uuid.UUID, limit int) ([]TopDonor, error) {
	const q = `SELECT donor_id, SUM(amount_cents), COUNT(*), BOOL_OR(is_anonymous)
		FROM donations WHERE community_id = $1 AND status = 'completed'
		GROUP BY donor_id ORDER BY SUM(amount_cents) DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, communityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []TopDonor
	for rows.Next() {
		var t TopDonor
		if err := rows.Scan(&t.DonorID, &t.TotalCents, &t.Donations, &t.IsAnonymous); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// TotalByCommunity sums completed donations in a community.
func (r *Repository) TotalByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM donations
			WHERE community_id = $1 AND status = 'completed'`,
		communityID).Scan(&total)
	return total, err
}

// SetStatus moves a donation to a new status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE donations SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}
