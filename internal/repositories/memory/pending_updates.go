package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/repositories"
)

type PendingUpdateStore struct {
	db *DB
}

func clonePending(p models.PendingUpdate) *models.PendingUpdate {
	p.OldValues = copyFields(p.OldValues)
	p.NewValues = copyFields(p.NewValues)
	return &p
}

func (s *PendingUpdateStore) Create(ctx context.Context, p *models.PendingUpdate) error {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	p.ID = uuid.New()
	p.CreatedAt = d.now()
	p.UpdatedAt = p.CreatedAt
	d.pending[p.ID] = *clonePending(*p)

	id := p.ID
	d.onRollback(ctx, func() { delete(d.pending, id) })
	return nil
}

func (s *PendingUpdateStore) GetByID(_ context.Context, id uuid.UUID) (*models.PendingUpdate, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return clonePending(p), nil
}

func (s *PendingUpdateStore) List(_ context.Context, businessID uuid.UUID, f repositories.PendingUpdateFilter) ([]models.PendingUpdate, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	out := []models.PendingUpdate{}
	for _, p := range d.pending {
		if p.BusinessID != businessID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.SubmitterID != nil && p.SubmitterID != *f.SubmitterID {
			continue
		}
		if f.TableName != nil && p.TableName != *f.TableName {
			continue
		}
		if f.RecordID != nil && p.RecordID != *f.RecordID {
			continue
		}
		out = append(out, *clonePending(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (s *PendingUpdateStore) CountByStatus(_ context.Context, businessID uuid.UUID, status string, submitterID *uuid.UUID) (int, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, p := range d.pending {
		if p.BusinessID == businessID && p.Status == status && (submitterID == nil || p.SubmitterID == *submitterID) {
			n++
		}
	}
	return n, nil
}

func (s *PendingUpdateStore) Transition(ctx context.Context, t repositories.TransitionParams) (*models.PendingUpdate, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.pending[t.ID]
	if !ok || prev.BusinessID != t.BusinessID || prev.Status != models.PendingStatusPending {
		return nil, repositories.ErrNotPending
	}

	next := *clonePending(prev)
	reviewer := t.ReviewerID
	at := t.At
	next.Status = t.Status
	next.ReviewerID = &reviewer
	next.ReviewedAt = &at
	next.AdminReason = t.AdminReason
	next.UpdatedAt = at
	d.pending[t.ID] = next

	d.onRollback(ctx, func() { d.pending[t.ID] = prev })
	return clonePending(next), nil
}

func page[T any](items []T, limit, offset int) []T {
	limit = repositories.ClampLimit(limit)
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
