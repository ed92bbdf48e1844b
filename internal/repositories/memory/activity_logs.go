package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/repositories"
)

type ActivityLogStore struct {
	db *DB

	// FailCreate, when set, makes every insert fail with its error.
	FailCreate error
}

func (s *ActivityLogStore) Create(ctx context.Context, entry *models.ActivityLog) error {
	if s.FailCreate != nil {
		return s.FailCreate
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	entry.ID = uuid.New()
	entry.CreatedAt = d.now()
	stored := *entry
	stored.OldValues = copyFields(entry.OldValues)
	stored.NewValues = copyFields(entry.NewValues)
	d.activity = append(d.activity, stored)

	id := entry.ID
	d.onRollback(ctx, func() {
		for i := range d.activity {
			if d.activity[i].ID == id {
				d.activity = append(d.activity[:i], d.activity[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *ActivityLogStore) List(_ context.Context, businessID uuid.UUID, f repositories.ActivityLogFilter) ([]models.ActivityLog, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	out := []models.ActivityLog{}
	for _, l := range d.activity {
		if l.BusinessID != businessID {
			continue
		}
		if f.TableName != nil && l.TableName != *f.TableName {
			continue
		}
		if f.RecordID != nil && l.RecordID != *f.RecordID {
			continue
		}
		if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.ActionType != nil && l.ActionType != *f.ActionType {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}
