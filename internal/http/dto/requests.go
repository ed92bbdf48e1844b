package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/laundry-desk/backend/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type SubmitPendingUpdateRequest struct {
	TableName string          `json:"table_name" validate:"required,oneof=services expenses profiles"`
	RecordID  string          `json:"record_id" validate:"required,uuid"`
	OldValues models.FieldMap `json:"old_values,omitempty"`
	NewValues models.FieldMap `json:"new_values" validate:"required,min=1"`
	Reason    *string         `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

type DecisionRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=approve reject send_back"`
	Reason   *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

type EditRecordRequest struct {
	Values models.FieldMap `json:"values" validate:"required,min=1"`
	Reason *string         `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

type DeleteRecordRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// FieldError reports the first failing field of a request, in json naming.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// Validate checks struct tags on a decoded request.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &FieldError{Field: jsonName(fe.Field()), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid":
		return "must be a uuid"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must not be empty"
	}
	return "is invalid"
}

// jsonName converts a Go field name such as RecordID to record_id.
func jsonName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
