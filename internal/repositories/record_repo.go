package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/laundry-desk/backend/internal/db"
	"github.com/laundry-desk/backend/internal/models"
)

// columnCasts gives the SQL type of non-text editable columns. Values travel as
// canonical strings and are cast server-side.
var columnCasts = map[string]string{
	"amount":         "numeric",
	"deposit_amount": "numeric",
	"service_date":   "date",
	"due_date":       "date",
	"expense_date":   "date",
}

// RecordRepo reads and writes the editable fields of live services, expenses
// and profiles. Table and column names only ever come from models.EditableFields.
type RecordRepo struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

func editableColumns(table string) ([]string, error) {
	cols, ok := models.EditableFields[table]
	if !ok {
		return nil, fmt.Errorf("table %q has no editable fields", table)
	}
	return cols, nil
}

// Get loads a record scoped to businessID. With forUpdate the row stays locked
// until the surrounding transaction ends.
func (r *RecordRepo) Get(ctx context.Context, businessID uuid.UUID, table string, id uuid.UUID, forUpdate bool) (*models.Record, error) {
	cols, err := editableColumns(table)
	if err != nil {
		return nil, err
	}

	selects := make([]string, len(cols))
	for i, c := range cols {
		selects[i] = c + "::text"
	}
	query := fmt.Sprintf(`SELECT updated_at, %s FROM %s WHERE id = $1 AND business_id = $2`, strings.Join(selects, ", "), table)
	if forUpdate {
		query += " FOR UPDATE"
	}

	rec := &models.Record{TableName: table, ID: id, BusinessID: businessID}
	values := make([]*string, len(cols))
	dest := make([]any, 0, len(cols)+1)
	dest = append(dest, &rec.UpdatedAt)
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, id, businessID).Scan(dest...); err != nil {
		return nil, notFound(err)
	}

	raw := make(models.FieldMap, len(cols))
	for i, c := range cols {
		if values[i] == nil {
			raw[c] = nil
		} else {
			raw[c] = *values[i]
		}
	}
	rec.Fields, err = models.Canonicalize(table, raw)
	if err != nil {
		return nil, fmt.Errorf("stored %s %s does not decode: %w", table, id, err)
	}
	return rec, nil
}

// Apply overwrites only the given fields in one statement.
func (r *RecordRepo) Apply(ctx context.Context, businessID uuid.UUID, table string, id uuid.UUID, fields models.FieldMap) error {
	cols, err := editableColumns(table)
	if err != nil {
		return err
	}
	allowed := make(map[string]bool, len(cols))
	for _, c := range cols {
		allowed[c] = true
	}

	args := []any{id, businessID}
	sets := make([]string, 0, len(fields)+1)
	for _, k := range fields.Keys() {
		if !allowed[k] {
			return fmt.Errorf("field %q is not editable on %s", k, table)
		}
		args = append(args, fields[k])
		placeholder := fmt.Sprintf("$%d", len(args))
		if cast, ok := columnCasts[k]; ok {
			placeholder += "::" + cast
		}
		sets = append(sets, fmt.Sprintf("%s = %s", k, placeholder))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = now()")

	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 AND business_id = $2`, table, strings.Join(sets, ", ")), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RecordRepo) Delete(ctx context.Context, businessID uuid.UUID, table string, id uuid.UUID) error {
	if _, err := editableColumns(table); err != nil {
		return err
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND business_id = $2`, table), id, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
