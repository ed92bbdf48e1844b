package models

import (
	"time"

	"github.com/google/uuid"
)

// Record is a live row of a reviewable table, reduced to its editable fields.
type Record struct {
	TableName  string    `json:"table_name"`
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Fields     FieldMap  `json:"fields"`
	UpdatedAt  time.Time `json:"updated_at"`
}
