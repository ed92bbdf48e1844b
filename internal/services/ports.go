package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/repositories"
)

// TxManager runs fn as one unit of work; stores called with the ctx handed to
// fn take part in it.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type PendingUpdateStore interface {
	Create(ctx context.Context, p *models.PendingUpdate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PendingUpdate, error)
	List(ctx context.Context, businessID uuid.UUID, f repositories.PendingUpdateFilter) ([]models.PendingUpdate, error)
	CountByStatus(ctx context.Context, businessID uuid.UUID, status string, submitterID *uuid.UUID) (int, error)
	Transition(ctx context.Context, t repositories.TransitionParams) (*models.PendingUpdate, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListRecent(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error)
	UnreadIDs(ctx context.Context, recipientID uuid.UUID) ([]uuid.UUID, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

type ActivityLogStore interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, businessID uuid.UUID, f repositories.ActivityLogFilter) ([]models.ActivityLog, error)
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ListAdmins(ctx context.Context, businessID uuid.UUID) ([]models.Profile, error)
}

type RecordStore interface {
	Get(ctx context.Context, businessID uuid.UUID, table string, id uuid.UUID, forUpdate bool) (*models.Record, error)
	Apply(ctx context.Context, businessID uuid.UUID, table string, id uuid.UUID, fields models.FieldMap) error
	Delete(ctx context.Context, businessID uuid.UUID, table string, id uuid.UUID) error
}

type RetryQueue interface {
	Enqueue(ctx context.Context, item repositories.RetryItem) error
	Dequeue(ctx context.Context, max int) ([]repositories.RetryItem, error)
}

// AuditLogger records sensitive actions. It never reports failure.
type AuditLogger interface {
	Log(ctx context.Context, e AuditEntry)
}

// Notifier is the slice of NotificationService the workflow depends on.
type Notifier interface {
	CreateOrQueue(ctx context.Context, in NewNotification) (*models.Notification, error)
	FanOutToAdmins(ctx context.Context, in AdminBroadcast) (FanOutResult, error)
}
