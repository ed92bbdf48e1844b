package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Sentinels returned by every store implementation; services translate them.
var (
	ErrNotFound   = errors.New("not found")
	ErrNotPending = errors.New("pending update is no longer pending")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type PendingUpdateFilter struct {
	Status      *string
	SubmitterID *uuid.UUID
	TableName   *string
	RecordID    *uuid.UUID
	Limit       int
	Offset      int
}

type ActivityLogFilter struct {
	TableName   *string
	RecordID    *uuid.UUID
	ActorUserID *uuid.UUID
	ActionType  *string
	Limit       int
	Offset      int
}

// TransitionParams describes a compare-and-set move out of pending.
type TransitionParams struct {
	ID          uuid.UUID
	BusinessID  uuid.UUID
	Status      string
	ReviewerID  uuid.UUID
	AdminReason *string
	At          time.Time
}

// ClampLimit applies the list defaults shared by all stores.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// whereBuilder accumulates positional conditions.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends ORDER BY / LIMIT / OFFSET and returns the final query and args.
func (w *whereBuilder) page(query, orderBy string, limit, offset int) (string, []any) {
	n := len(w.args)
	query += w.sql() + fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", orderBy, n+1, n+2)
	return query, append(w.args, ClampLimit(limit), offset)
}
