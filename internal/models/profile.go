package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile binds an identity (UserID) to a business and a role.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	BusinessID uuid.UUID `json:"business_id"`
	FirstName  *string   `json:"first_name,omitempty"`
	LastName   *string   `json:"last_name,omitempty"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName falls back to "A user" when no name is on file.
func (p *Profile) DisplayName() string {
	var parts []string
	if p.FirstName != nil && *p.FirstName != "" {
		parts = append(parts, *p.FirstName)
	}
	if p.LastName != nil && *p.LastName != "" {
		parts = append(parts, *p.LastName)
	}
	if len(parts) == 0 {
		return "A user"
	}
	return strings.Join(parts, " ")
}

func (p *Profile) Change() ProfileChange {
	return ProfileChange{FirstName: p.FirstName, LastName: p.LastName, Role: p.Role}
}
