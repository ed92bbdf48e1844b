package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/laundry-desk/backend/internal/repositories"
)

var ErrNoProfile = errors.New("no profile for authenticated user")

// Caller is the identity every workflow operation acts as. It is resolved
// server-side from the token subject; request bodies never supply it.
type Caller struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
	Role       string
	SessionID  string
}

func (c Caller) Can(permission string) bool {
	return rbac.HasPermission(c.Role, permission)
}

type ProfileLookup interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

func ResolveCaller(ctx context.Context, profiles ProfileLookup, claims *Claims) (Caller, error) {
	p, err := profiles.GetByUserID(ctx, claims.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return Caller{}, errors.Join(ErrNoProfile, err)
	}
	if err != nil {
		return Caller{}, fmt.Errorf("load profile: %w", err)
	}
	if !rbac.IsValidRole(p.Role) {
		return Caller{}, errors.New("profile has unknown role")
	}
	return Caller{
		UserID:     p.UserID,
		BusinessID: p.BusinessID,
		Role:       p.Role,
		SessionID:  claims.SessionID,
	}, nil
}
