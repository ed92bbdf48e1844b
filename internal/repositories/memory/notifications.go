package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/repositories"
)

type NotificationStore struct {
	db *DB

	// FailCreate, when set, is consulted before each insert.
	FailCreate func(n *models.Notification) error
	// FailMarkRead, when set, is consulted before each mark-read.
	FailMarkRead func(id uuid.UUID) error
}

func cloneNotification(n models.Notification) *models.Notification {
	n.Data = copyData(n.Data)
	return &n
}

func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if s.FailCreate != nil {
		if err := s.FailCreate(n); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	n.ID = uuid.New()
	n.CreatedAt = d.now()
	n.UpdatedAt = n.CreatedAt
	d.notifications[n.ID] = *cloneNotification(*n)

	id := n.ID
	d.onRollback(ctx, func() { delete(d.notifications, id) })
	return nil
}

func (s *NotificationStore) GetByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneNotification(n), nil
}

func (s *NotificationStore) forRecipient(recipientID uuid.UUID, unreadOnly bool) []models.Notification {
	var out []models.Notification
	for _, n := range s.db.notifications {
		if n.RecipientUserID != recipientID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, *cloneNotification(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *NotificationStore) ListRecent(_ context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := s.forRecipient(recipientID, false)
	if out == nil {
		out = []models.Notification{}
	}
	return page(out, limit, 0), nil
}

func (s *NotificationStore) UnreadIDs(_ context.Context, recipientID uuid.UUID) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var ids []uuid.UUID
	for _, n := range s.forRecipient(recipientID, true) {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

func (s *NotificationStore) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.forRecipient(recipientID, true)), nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if s.FailMarkRead != nil {
		if err := s.FailMarkRead(id); err != nil {
			return false, err
		}
	}

	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.notifications[id]
	if !ok || n.ReadAt != nil {
		return false, nil
	}
	prev := n
	n.ReadAt = &at
	n.UpdatedAt = at
	d.notifications[id] = n

	d.onRollback(ctx, func() { d.notifications[id] = prev })
	return true, nil
}

func (s *NotificationStore) DeleteReadBefore(_ context.Context, before time.Time) (int64, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	var n int64
	for id, notif := range d.notifications {
		if notif.ReadAt != nil && notif.ReadAt.Before(before) {
			delete(d.notifications, id)
			n++
		}
	}
	return n, nil
}
