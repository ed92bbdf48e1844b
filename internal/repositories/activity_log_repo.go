package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/laundry-desk/backend/internal/db"
	"github.com/laundry-desk/backend/internal/models"
)

type ActivityLogRepo struct {
	pool *pgxpool.Pool
}

func NewActivityLogRepo(pool *pgxpool.Pool) *ActivityLogRepo {
	return &ActivityLogRepo{pool: pool}
}

func (r *ActivityLogRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO activity_logs (business_id, user_id, action_type, table_name, record_id, old_values, new_values, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, entry.BusinessID, entry.ActorUserID, entry.ActionType, entry.TableName, entry.RecordID,
		entry.OldValues, entry.NewValues, entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ActivityLogRepo) List(ctx context.Context, businessID uuid.UUID, f ActivityLogFilter) ([]models.ActivityLog, error) {
	w := &whereBuilder{}
	w.add("business_id = $%d", businessID)
	if f.TableName != nil {
		w.add("table_name = $%d", *f.TableName)
	}
	if f.RecordID != nil {
		w.add("record_id = $%d", *f.RecordID)
	}
	if f.ActorUserID != nil {
		w.add("user_id = $%d", *f.ActorUserID)
	}
	if f.ActionType != nil {
		w.add("action_type = $%d", *f.ActionType)
	}
	query, args := w.page(`
		SELECT id, business_id, user_id, action_type, table_name, record_id, old_values, new_values, reason, created_at
		FROM activity_logs`, "created_at DESC", f.Limit, f.Offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.ActivityLog{}
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.BusinessID, &l.ActorUserID, &l.ActionType, &l.TableName, &l.RecordID,
			&l.OldValues, &l.NewValues, &l.Reason, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
