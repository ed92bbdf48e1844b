package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/repositories"
)

// RecordStore serves services and expenses from their own maps and profiles
// from the profile table, so approved profile changes affect role lookups.
type RecordStore struct {
	db *DB

	// FailApply, when set, is consulted before each apply.
	FailApply func(table string, id uuid.UUID) error
}

func (s *RecordStore) Get(_ context.Context, businessID uuid.UUID, table string, id uuid.UUID, _ bool) (*models.Record, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getRecord(businessID, table, id)
}

func (d *DB) getRecord(businessID uuid.UUID, table string, id uuid.UUID) (*models.Record, error) {
	if table == models.TableProfiles {
		p, ok := d.profiles[id]
		if !ok || p.BusinessID != businessID {
			return nil, repositories.ErrNotFound
		}
		return &models.Record{
			TableName: table, ID: id, BusinessID: businessID,
			Fields: p.Change().Fields(), UpdatedAt: p.UpdatedAt,
		}, nil
	}

	rows, ok := d.records[table]
	if !ok {
		return nil, fmt.Errorf("table %q has no editable fields", table)
	}
	r, ok := rows[id]
	if !ok || r.BusinessID != businessID {
		return nil, repositories.ErrNotFound
	}
	r.Fields = copyFields(r.Fields)
	return &r, nil
}

func (s *RecordStore) Apply(ctx context.Context, businessID uuid.UUID, table string, id uuid.UUID, fields models.FieldMap) error {
	if s.FailApply != nil {
		if err := s.FailApply(table, id); err != nil {
			return err
		}
	}

	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.getRecord(businessID, table, id)
	if err != nil {
		return err
	}
	merged := copyFields(current.Fields)
	for k, v := range fields {
		if _, ok := merged[k]; !ok {
			return fmt.Errorf("field %q is not editable on %s", k, table)
		}
		merged[k] = v
	}
	change, err := models.DecodeChange(table, merged)
	if err != nil {
		return err
	}
	now := d.now()

	if table == models.TableProfiles {
		prev := d.profiles[id]
		pc := change.(models.ProfileChange)
		next := prev
		next.FirstName, next.LastName, next.Role = pc.FirstName, pc.LastName, pc.Role
		next.UpdatedAt = now
		d.profiles[id] = next
		d.onRollback(ctx, func() { d.profiles[id] = prev })
		return nil
	}

	prev := d.records[table][id]
	d.records[table][id] = models.Record{
		TableName: table, ID: id, BusinessID: businessID,
		Fields: change.Fields(), UpdatedAt: now,
	}
	d.onRollback(ctx, func() { d.records[table][id] = prev })
	return nil
}

func (s *RecordStore) Delete(ctx context.Context, businessID uuid.UUID, table string, id uuid.UUID) error {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, ok := d.records[table]
	if !ok {
		return errors.New("records of this table cannot be deleted here")
	}
	prev, ok := rows[id]
	if !ok || prev.BusinessID != businessID {
		return repositories.ErrNotFound
	}
	delete(rows, id)
	d.onRollback(ctx, func() { rows[id] = prev })
	return nil
}

// AddRecord seeds a live service or expense and returns it canonicalized.
func (d *DB) AddRecord(table string, businessID uuid.UUID, fields models.FieldMap) (models.Record, error) {
	canonical, err := models.Canonicalize(table, fields)
	if err != nil {
		return models.Record{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rows, ok := d.records[table]
	if !ok {
		return models.Record{}, fmt.Errorf("cannot seed %s records", table)
	}
	r := models.Record{TableName: table, ID: uuid.New(), BusinessID: businessID, Fields: canonical, UpdatedAt: d.now()}
	rows[r.ID] = r
	return r, nil
}

// SetRecordField changes a live field directly, bypassing review.
func (d *DB) SetRecordField(table string, id uuid.UUID, field string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.records[table][id]
	r.Fields = copyFields(r.Fields)
	r.Fields[field] = value
	d.records[table][id] = r
}
