package dto

import (
	"time"

	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/session"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind,omitempty"`
	Field         string `json:"field,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// PendingUpdateView adds the changed-field diff used by review screens.
type PendingUpdateView struct {
	*models.PendingUpdate
	ChangedFields []models.FieldChange `json:"changed_fields"`
}

func NewPendingUpdateView(p *models.PendingUpdate) PendingUpdateView {
	changes := p.ChangedFields()
	if changes == nil {
		changes = []models.FieldChange{}
	}
	return PendingUpdateView{PendingUpdate: p, ChangedFields: changes}
}

func NewPendingUpdateViews(list []models.PendingUpdate) []PendingUpdateView {
	out := make([]PendingUpdateView, 0, len(list))
	for i := range list {
		out = append(out, NewPendingUpdateView(&list[i]))
	}
	return out
}

type CountResponse struct {
	Count int `json:"count"`
}

type MeResponse struct {
	UserID     string          `json:"user_id"`
	BusinessID string          `json:"business_id"`
	Role       string          `json:"role"`
	Profile    *models.Profile `json:"profile,omitempty"`
}

type SessionResponse struct {
	Status           string    `json:"status"`
	LastActivity     time.Time `json:"last_activity"`
	IdleSeconds      int       `json:"idle_seconds"`
	RemainingSeconds int       `json:"remaining_seconds"`
	WarnAfterSeconds int       `json:"warn_after_seconds"`
	LogoutAfterSecs  int       `json:"logout_after_seconds"`
}

func NewSessionResponse(st session.State, warnAfter, logoutAfter time.Duration) SessionResponse {
	return SessionResponse{
		Status:           st.Status,
		LastActivity:     st.LastActivity,
		IdleSeconds:      int(st.Idle.Seconds()),
		RemainingSeconds: int(st.Remaining.Seconds()),
		WarnAfterSeconds: int(warnAfter.Seconds()),
		LogoutAfterSecs:  int(logoutAfter.Seconds()),
	}
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
