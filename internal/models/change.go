package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/shopspring/decimal"
)

// Target tables
const (
	TableServices = "services"
	TableExpenses = "expenses"
	TableProfiles = "profiles"
	TableUsers    = "users"
)

// Service payment enums
const (
	PaymentStatusNotPaid       = "not_paid"
	PaymentStatusPartiallyPaid = "partially_paid"
	PaymentStatusFullyPaid     = "fully_paid"

	PaymentMethodCash       = "cash"
	PaymentMethodMpesa      = "mpesa"
	PaymentMethodBankCheque = "bank_cheque"
	PaymentMethodCredit     = "credit"
)

const dateLayout = "2006-01-02"

// EditableFields is the reviewable field set per table. Snapshots must carry exactly these keys.
var EditableFields = map[string][]string{
	TableServices: {
		"customer_name", "service_type", "amount", "service_date", "payment_status",
		"payment_method", "deposit_amount", "due_date", "description", "phone_number",
	},
	TableExpenses: {"category", "description", "amount", "expense_date"},
	TableProfiles: {"first_name", "last_name", "role"},
}

func IsReviewableTable(table string) bool {
	_, ok := EditableFields[table]
	return ok
}

// Change is a typed proposal for one of the reviewable tables.
type Change interface {
	Table() string
	Fields() FieldMap
}

type ServiceChange struct {
	CustomerName  string
	ServiceType   string
	Amount        decimal.Decimal
	ServiceDate   time.Time
	PaymentStatus string
	PaymentMethod *string
	DepositAmount *decimal.Decimal
	DueDate       *time.Time
	Description   *string
	PhoneNumber   *string
}

func (ServiceChange) Table() string { return TableServices }

func (c ServiceChange) Fields() FieldMap {
	return FieldMap{
		"customer_name":  c.CustomerName,
		"service_type":   c.ServiceType,
		"amount":         money(c.Amount),
		"service_date":   c.ServiceDate.Format(dateLayout),
		"payment_status": c.PaymentStatus,
		"payment_method": optString(c.PaymentMethod),
		"deposit_amount": optMoney(c.DepositAmount),
		"due_date":       optDate(c.DueDate),
		"description":    optString(c.Description),
		"phone_number":   optString(c.PhoneNumber),
	}
}

type ExpenseChange struct {
	Category    string
	Description string
	Amount      decimal.Decimal
	ExpenseDate time.Time
}

func (ExpenseChange) Table() string { return TableExpenses }

func (c ExpenseChange) Fields() FieldMap {
	return FieldMap{
		"category":     c.Category,
		"description":  c.Description,
		"amount":       money(c.Amount),
		"expense_date": c.ExpenseDate.Format(dateLayout),
	}
}

type ProfileChange struct {
	FirstName *string
	LastName  *string
	Role      string
}

func (ProfileChange) Table() string { return TableProfiles }

func (c ProfileChange) Fields() FieldMap {
	return FieldMap{
		"first_name": optString(c.FirstName),
		"last_name":  optString(c.LastName),
		"role":       c.Role,
	}
}

// DecodeChange converts a storage snapshot into its typed variant.
// The snapshot must carry exactly the table's editable field set.
func DecodeChange(table string, m FieldMap) (Change, error) {
	fields, ok := EditableFields[table]
	if !ok {
		return nil, apperr.Validation("table_name", fmt.Sprintf("%q is not a reviewable table", table))
	}
	for _, f := range fields {
		if _, ok := m[f]; !ok {
			return nil, apperr.Validation(f, "is missing")
		}
	}
	if len(m) != len(fields) {
		allowed := make(map[string]struct{}, len(fields))
		for _, f := range fields {
			allowed[f] = struct{}{}
		}
		for _, k := range m.Keys() {
			if _, ok := allowed[k]; !ok {
				return nil, apperr.Validation(k, "is not an editable field")
			}
		}
	}

	d := decoder{m: m}
	var change Change
	switch table {
	case TableServices:
		c := ServiceChange{
			CustomerName:  d.requiredString("customer_name"),
			ServiceType:   d.requiredString("service_type"),
			Amount:        d.decimal("amount"),
			ServiceDate:   d.date("service_date"),
			PaymentStatus: d.requiredString("payment_status"),
			PaymentMethod: d.optString("payment_method"),
			DepositAmount: d.optDecimal("deposit_amount"),
			DueDate:       d.optDate("due_date"),
			Description:   d.optString("description"),
			PhoneNumber:   d.optString("phone_number"),
		}
		if d.err == nil {
			d.err = c.validate()
		}
		change = c
	case TableExpenses:
		c := ExpenseChange{
			Category:    d.requiredString("category"),
			Description: d.requiredString("description"),
			Amount:      d.decimal("amount"),
			ExpenseDate: d.date("expense_date"),
		}
		if d.err == nil && c.Amount.IsNegative() {
			d.err = apperr.Validation("amount", "must not be negative")
		}
		change = c
	case TableProfiles:
		c := ProfileChange{
			FirstName: d.optString("first_name"),
			LastName:  d.optString("last_name"),
			Role:      d.requiredString("role"),
		}
		if d.err == nil && !rbac.IsValidRole(c.Role) {
			d.err = apperr.Validation("role", "must be admin or user")
		}
		change = c
	}
	if d.err != nil {
		return nil, d.err
	}
	return change, nil
}

// Canonicalize decodes and re-encodes a snapshot so equal values compare equal.
func Canonicalize(table string, m FieldMap) (FieldMap, error) {
	c, err := DecodeChange(table, m)
	if err != nil {
		return nil, err
	}
	return c.Fields(), nil
}

func (c ServiceChange) validate() error {
	switch c.PaymentStatus {
	case PaymentStatusNotPaid, PaymentStatusPartiallyPaid, PaymentStatusFullyPaid:
	default:
		return apperr.Validation("payment_status", "must be not_paid, partially_paid or fully_paid")
	}
	if c.PaymentMethod != nil {
		switch *c.PaymentMethod {
		case PaymentMethodCash, PaymentMethodMpesa, PaymentMethodBankCheque, PaymentMethodCredit:
		default:
			return apperr.Validation("payment_method", "must be cash, mpesa, bank_cheque or credit")
		}
	}
	if c.Amount.IsNegative() {
		return apperr.Validation("amount", "must not be negative")
	}
	if c.DepositAmount != nil {
		if c.DepositAmount.IsNegative() {
			return apperr.Validation("deposit_amount", "must not be negative")
		}
		if c.DepositAmount.GreaterThan(c.Amount) {
			return apperr.Validation("deposit_amount", "must not exceed amount")
		}
	}
	return nil
}

// decoder keeps the first error and turns every later read into a no-op.
type decoder struct {
	m   FieldMap
	err error
}

func (d *decoder) fail(field, msg string) {
	if d.err == nil {
		d.err = apperr.Validation(field, msg)
	}
}

func (d *decoder) optString(field string) *string {
	if d.err != nil {
		return nil
	}
	switch v := d.m[field].(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return &s
	default:
		d.fail(field, "must be a string")
		return nil
	}
}

func (d *decoder) requiredString(field string) string {
	s := d.optString(field)
	if s == nil {
		d.fail(field, "is required")
		return ""
	}
	return *s
}

func (d *decoder) optDecimal(field string) *decimal.Decimal {
	if d.err != nil {
		return nil
	}
	var (
		out decimal.Decimal
		err error
	)
	switch v := d.m[field].(type) {
	case nil:
		return nil
	case decimal.Decimal:
		out = v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		out, err = decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		out, err = decimal.NewFromString(v.String())
	case float64:
		out = decimal.NewFromFloat(v)
	case int:
		out = decimal.NewFromInt(int64(v))
	case int64:
		out = decimal.NewFromInt(v)
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		d.fail(field, "must be a decimal amount")
		return nil
	}
	return &out
}

func (d *decoder) decimal(field string) decimal.Decimal {
	v := d.optDecimal(field)
	if v == nil {
		d.fail(field, "is required")
		return decimal.Zero
	}
	return *v
}

func (d *decoder) optDate(field string) *time.Time {
	if d.err != nil {
		return nil
	}
	switch v := d.m[field].(type) {
	case nil:
		return nil
	case time.Time:
		t := truncateDate(v)
		return &t
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		if t, err := time.Parse(dateLayout, s); err == nil {
			return &t
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			t = truncateDate(t)
			return &t
		}
	}
	d.fail(field, "must be a date (YYYY-MM-DD)")
	return nil
}

func (d *decoder) date(field string) time.Time {
	v := d.optDate(field)
	if v == nil {
		d.fail(field, "is required")
		return time.Time{}
	}
	return *v
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optMoney(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return money(*d)
}

func optDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
