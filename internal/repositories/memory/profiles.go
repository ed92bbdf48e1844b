package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/laundry-desk/backend/internal/repositories"
)

type ProfileStore struct {
	db *DB

	// FailListAdmins, when set, makes admin resolution fail.
	FailListAdmins error
}

func (s *ProfileStore) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.profiles {
		if p.UserID == userID {
			p := p
			return &p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *ProfileStore) ListAdmins(_ context.Context, businessID uuid.UUID) ([]models.Profile, error) {
	if s.FailListAdmins != nil {
		return nil, s.FailListAdmins
	}

	d := s.db
	d.mu.Lock()
	defer d.mu.Unlock()

	var admins []models.Profile
	for _, p := range d.profiles {
		if p.BusinessID == businessID && p.Role == rbac.RoleAdmin {
			admins = append(admins, p)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.Before(admins[j].CreatedAt) })
	return admins, nil
}

// AddProfile seeds a profile, filling in missing ids and timestamps.
func (d *DB) AddProfile(p models.Profile) models.Profile {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UserID == uuid.Nil {
		p.UserID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = d.now()
		p.UpdatedAt = p.CreatedAt
	}
	d.profiles[p.ID] = p
	return p
}
