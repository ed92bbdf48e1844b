package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity action types
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ActivityLog is append-only; nothing in the application updates or deletes it.
type ActivityLog struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	ActorUserID uuid.UUID `json:"user_id"`
	ActionType  string    `json:"action_type"`
	TableName   string    `json:"table_name"`
	RecordID    uuid.UUID `json:"record_id"`
	OldValues   FieldMap  `json:"old_values,omitempty"`
	NewValues   FieldMap  `json:"new_values,omitempty"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

func IsValidAction(action string) bool {
	return action == ActionCreate || action == ActionUpdate || action == ActionDelete
}

func IsLoggedTable(table string) bool {
	switch table {
	case TableServices, TableExpenses, TableUsers, TableProfiles:
		return true
	}
	return false
}
