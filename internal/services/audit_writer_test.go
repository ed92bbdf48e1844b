package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/repositories"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditWriterRefusesInvalidEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	valid := AuditEntry{
		ActionType: models.ActionDelete,
		TableName:  models.TableServices,
		RecordID:   uuid.New(),
		Reason:     "duplicate",
		BusinessID: f.business,
		ActorID:    f.admin.UserID,
	}

	cases := map[string]func(e *AuditEntry){
		"blank reason":   func(e *AuditEntry) { e.Reason = "  " },
		"unknown action": func(e *AuditEntry) { e.ActionType = "archive" },
		"unknown table":  func(e *AuditEntry) { e.TableName = "invoices" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			e := valid
			mutate(&e)
			f.audit.Log(ctx, e)
		})
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.AuditFailures))
	assert.Equal(t, 3, f.logs.FilterMessageSnippet("activity log entry refused").Len())

	f.audit.Log(ctx, valid)
	logs, err := f.activity.List(ctx, f.admin, repositories.ActivityLogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestAuditWriterSwallowsStoreErrors(t *testing.T) {
	f := newFixture(t)
	f.db.ActivityLogs.FailCreate = errors.New("relation does not exist")

	assert.NotPanics(t, func() {
		f.audit.Log(context.Background(), AuditEntry{
			ActionType: models.ActionUpdate,
			TableName:  models.TableExpenses,
			RecordID:   f.expense.ID,
			Reason:     "fix",
			BusinessID: f.business,
			ActorID:    f.admin.UserID,
		})
	})
	assert.Equal(t, 1, f.logs.FilterMessage("failed to write activity log").Len())
}

func TestActivityListIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	_, err := f.activity.List(context.Background(), f.user, repositories.ActivityLogFilter{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
