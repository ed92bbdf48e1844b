package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/laundry-desk/backend/internal/db"
	"github.com/laundry-desk/backend/internal/models"
)

const pendingUpdateColumns = `
	id, business_id, table_name, record_id, submitted_by, old_values, new_values, status,
	admin_reason, submitter_reason, reviewed_by, reviewed_at, created_at, updated_at`

type PendingUpdateRepo struct {
	pool *pgxpool.Pool
}

func NewPendingUpdateRepo(pool *pgxpool.Pool) *PendingUpdateRepo {
	return &PendingUpdateRepo{pool: pool}
}

func scanPendingUpdate(row pgx.Row) (*models.PendingUpdate, error) {
	var p models.PendingUpdate
	err := row.Scan(&p.ID, &p.BusinessID, &p.TableName, &p.RecordID, &p.SubmitterID, &p.OldValues, &p.NewValues, &p.Status,
		&p.AdminReason, &p.SubmitterReason, &p.ReviewerID, &p.ReviewedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PendingUpdateRepo) Create(ctx context.Context, p *models.PendingUpdate) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO pending_updates (business_id, table_name, record_id, submitted_by, old_values, new_values, status, submitter_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, p.BusinessID, p.TableName, p.RecordID, p.SubmitterID, p.OldValues, p.NewValues, p.Status, p.SubmitterReason,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PendingUpdateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingUpdate, error) {
	return scanPendingUpdate(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+pendingUpdateColumns+` FROM pending_updates WHERE id = $1`, id))
}

func (r *PendingUpdateRepo) List(ctx context.Context, businessID uuid.UUID, f PendingUpdateFilter) ([]models.PendingUpdate, error) {
	w := &whereBuilder{}
	w.add("business_id = $%d", businessID)
	if f.Status != nil {
		w.add("status = $%d", *f.Status)
	}
	if f.SubmitterID != nil {
		w.add("submitted_by = $%d", *f.SubmitterID)
	}
	if f.TableName != nil {
		w.add("table_name = $%d", *f.TableName)
	}
	if f.RecordID != nil {
		w.add("record_id = $%d", *f.RecordID)
	}
	query, args := w.page(`SELECT `+pendingUpdateColumns+` FROM pending_updates`, "created_at DESC", f.Limit, f.Offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := []models.PendingUpdate{}
	for rows.Next() {
		p, err := scanPendingUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, *p)
	}
	return updates, rows.Err()
}

func (r *PendingUpdateRepo) CountByStatus(ctx context.Context, businessID uuid.UUID, status string, submitterID *uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT count(*) FROM pending_updates
		WHERE business_id = $1 AND status = $2 AND ($3::uuid IS NULL OR submitted_by = $3)
	`, businessID, status, submitterID).Scan(&n)
	return n, err
}

// Transition moves a pending update out of pending. The status guard in the
// WHERE clause is the concurrency control: of two racing decisions only one
// matches a row, the other gets ErrNotPending.
func (r *PendingUpdateRepo) Transition(ctx context.Context, t TransitionParams) (*models.PendingUpdate, error) {
	p, err := scanPendingUpdate(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE pending_updates
		SET status = $3, reviewed_by = $4, reviewed_at = $5, admin_reason = $6, updated_at = $5
		WHERE id = $1 AND business_id = $2 AND status = 'pending'
		RETURNING `+pendingUpdateColumns,
		t.ID, t.BusinessID, t.Status, t.ReviewerID, t.At, t.AdminReason))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotPending
	}
	return p, err
}
