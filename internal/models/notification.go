package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types
const (
	NotificationNewUpdateRequest = "new_update_request"
	NotificationUpdateApproved   = "update_approved"
	NotificationUpdateRejected   = "update_rejected"
	NotificationUpdateSentBack   = "update_sent_back"
)

type Notification struct {
	ID              uuid.UUID      `json:"id"`
	BusinessID      uuid.UUID      `json:"business_id"`
	RecipientUserID uuid.UUID      `json:"user_id"`
	Type            string         `json:"type"`
	Title           string         `json:"title"`
	Message         string         `json:"message"`
	Data            map[string]any `json:"data,omitempty"`
	ReadAt          *time.Time     `json:"read_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// NotificationTypeForStatus maps a decided status onto the submitter notification type.
func NotificationTypeForStatus(status string) (string, bool) {
	switch status {
	case PendingStatusApproved:
		return NotificationUpdateApproved, true
	case PendingStatusRejected:
		return NotificationUpdateRejected, true
	case PendingStatusSentBackForReview:
		return NotificationUpdateSentBack, true
	}
	return "", false
}
