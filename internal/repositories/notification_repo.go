package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/laundry-desk/backend/internal/db"
	"github.com/laundry-desk/backend/internal/models"
)

const notificationColumns = `id, business_id, user_id, type, title, message, data, read_at, created_at, updated_at`

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.BusinessID, &n.RecipientUserID, &n.Type, &n.Title, &n.Message, &n.Data,
		&n.ReadAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO notifications (business_id, user_id, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, n.BusinessID, n.RecipientUserID, n.Type, n.Title, n.Message, n.Data,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return scanNotification(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
}

func (r *NotificationRepo) ListRecent(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, recipientID, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

func (r *NotificationRepo) UnreadIDs(ctx context.Context, recipientID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT id FROM notifications WHERE user_id = $1 AND read_at IS NULL ORDER BY created_at`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, recipientID).Scan(&n)
	return n, err
}

// MarkRead sets read_at once. It reports false when the row was already read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE notifications SET read_at = $2, updated_at = $2 WHERE id = $1 AND read_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepo) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM notifications WHERE read_at IS NOT NULL AND read_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
