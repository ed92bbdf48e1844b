package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/laundry-desk/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditByUserGoesToReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.records.Edit(ctx, f.user, EditInput{
		TableName: models.TableExpenses,
		RecordID:  f.expense.ID,
		Values:    withChanges(expenseFields(), models.FieldMap{"amount": "950"}),
	})
	require.NoError(t, err)
	require.NotNil(t, res.PendingUpdate)
	assert.Nil(t, res.Record)
	assert.Equal(t, models.PendingStatusPending, res.PendingUpdate.Status)

	live, err := f.records.Get(ctx, f.user, models.TableExpenses, f.expense.ID)
	require.NoError(t, err)
	assert.Equal(t, "800.00", live.Fields["amount"])
}

func TestEditByAdminAppliesDirectlyWithAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.records.Edit(ctx, f.admin, EditInput{
		TableName: models.TableExpenses,
		RecordID:  f.expense.ID,
		Values:    withChanges(expenseFields(), models.FieldMap{"amount": "950"}),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation, "reason is mandatory for direct edits")

	res, err := f.records.Edit(ctx, f.admin, EditInput{
		TableName: models.TableExpenses,
		RecordID:  f.expense.ID,
		Values:    withChanges(expenseFields(), models.FieldMap{"amount": "950"}),
		Reason:    ptr("receipt corrected"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.Equal(t, "950.00", res.Record.Fields["amount"])

	logs, err := f.activity.List(ctx, f.admin, repositories.ActivityLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "receipt corrected", logs[0].Reason)
	assert.Equal(t, models.FieldMap{"amount": "800.00"}, logs[0].OldValues)
	assert.Equal(t, models.FieldMap{"amount": "950.00"}, logs[0].NewValues)
}

func TestApprovedProfileChangeUpdatesRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile, err := f.db.Profiles.GetByUserID(ctx, f.user.UserID)
	require.NoError(t, err)

	res, err := f.records.Edit(ctx, f.user, EditInput{
		TableName: models.TableProfiles,
		RecordID:  profile.ID,
		Values:    models.FieldMap{"first_name": "Caroline", "last_name": "Mutua", "role": rbac.RoleUser},
	})
	require.NoError(t, err)

	_, err = f.approvals.Decide(ctx, f.admin, res.PendingUpdate.ID, models.DecisionApprove, nil)
	require.NoError(t, err)

	updated, err := f.db.Profiles.GetByUserID(ctx, f.user.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Caroline Mutua", updated.DisplayName())
}

func TestDeleteRequiresAdminAndReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.records.Delete(ctx, f.user, models.TableServices, f.service.ID, ptr("duplicate"))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = f.records.Delete(ctx, f.admin, models.TableServices, f.service.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = f.records.Delete(ctx, f.admin, models.TableProfiles, f.service.ID, ptr("x"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = f.records.Delete(ctx, f.admin, models.TableServices, uuid.New(), ptr("x"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, f.records.Delete(ctx, f.admin, models.TableServices, f.service.ID, ptr("duplicate order")))
	_, err = f.records.Get(ctx, f.admin, models.TableServices, f.service.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	logs, err := f.activity.List(ctx, f.admin, repositories.ActivityLogFilter{ActionType: ptr(models.ActionDelete)})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Jane Wanjiru", logs[0].OldValues["customer_name"])
	assert.Equal(t, "duplicate order", logs[0].Reason)
}
