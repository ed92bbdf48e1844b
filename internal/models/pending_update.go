package models

import (
	"time"

	"github.com/google/uuid"
)

// Pending update statuses
const (
	PendingStatusPending           = "pending"
	PendingStatusApproved          = "approved"
	PendingStatusRejected          = "rejected"
	PendingStatusSentBackForReview = "sent_back_for_review"
)

// Admin decisions
const (
	DecisionApprove  = "approve"
	DecisionReject   = "reject"
	DecisionSendBack = "send_back"
)

// Valid state transitions: from -> []to.
// A sent-back update is never reopened; the submitter files a new one.
var ValidPendingUpdateTransitions = map[string][]string{
	PendingStatusPending:           {PendingStatusApproved, PendingStatusRejected, PendingStatusSentBackForReview},
	PendingStatusApproved:          {},
	PendingStatusRejected:          {},
	PendingStatusSentBackForReview: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidPendingUpdateTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StatusForDecision maps an admin decision onto the status it produces.
func StatusForDecision(decision string) (string, bool) {
	switch decision {
	case DecisionApprove:
		return PendingStatusApproved, true
	case DecisionReject:
		return PendingStatusRejected, true
	case DecisionSendBack:
		return PendingStatusSentBackForReview, true
	}
	return "", false
}

func IsValidPendingStatus(status string) bool {
	_, ok := ValidPendingUpdateTransitions[status]
	return ok
}

type PendingUpdate struct {
	ID              uuid.UUID  `json:"id"`
	BusinessID      uuid.UUID  `json:"business_id"`
	TableName       string     `json:"table_name"`
	RecordID        uuid.UUID  `json:"record_id"`
	SubmitterID     uuid.UUID  `json:"submitted_by"`
	OldValues       FieldMap   `json:"old_values"`
	NewValues       FieldMap   `json:"new_values"`
	Status          string     `json:"status"`
	AdminReason     *string    `json:"admin_reason,omitempty"`
	SubmitterReason *string    `json:"submitter_reason,omitempty"`
	ReviewerID      *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (p *PendingUpdate) IsPending() bool {
	return p.Status == PendingStatusPending
}

// ChangedFields returns the fields whose proposed value differs from the snapshot.
func (p *PendingUpdate) ChangedFields() []FieldChange {
	return Diff(p.OldValues, p.NewValues)
}
