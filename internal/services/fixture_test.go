package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/events"
	"github.com/laundry-desk/backend/internal/metrics"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/laundry-desk/backend/internal/repositories/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	db      *memory.DB
	hub     *events.Hub
	queue   *memory.RetryQueue
	logs    *observer.ObservedLogs
	metrics *metrics.Metrics

	notifications *NotificationService
	updates       *PendingUpdateService
	approvals     *ApprovalService
	records       *RecordService
	audit         *AuditWriter
	activity      *ActivityService

	business uuid.UUID
	admin    auth.Caller
	admin2   auth.Caller
	user     auth.Caller
	outsider auth.Caller
	service  models.Record
	expense  models.Record
}

func ptr[T any](v T) *T { return &v }

func serviceFields() models.FieldMap {
	return models.FieldMap{
		"customer_name":  "Jane Wanjiru",
		"service_type":   "Dry cleaning",
		"amount":         "1500",
		"service_date":   "2024-05-01",
		"payment_status": models.PaymentStatusNotPaid,
		"payment_method": nil,
		"deposit_amount": nil,
		"due_date":       nil,
		"description":    nil,
		"phone_number":   "0712345678",
	}
}

func expenseFields() models.FieldMap {
	return models.FieldMap{
		"category":     "Supplies",
		"description":  "Detergent",
		"amount":       "800",
		"expense_date": "2024-05-02",
	}
}

// withChanges returns a copy of base with the given overrides.
func withChanges(base models.FieldMap, changes models.FieldMap) models.FieldMap {
	out := make(models.FieldMap, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range changes {
		out[k] = v
	}
	return out
}

func caller(p models.Profile) auth.Caller {
	return auth.Caller{UserID: p.UserID, BusinessID: p.BusinessID, Role: p.Role, SessionID: uuid.NewString()}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	f := &fixture{
		db:       memory.New(),
		hub:      events.NewHub(32, log),
		queue:    memory.NewRetryQueue(),
		logs:     logs,
		metrics:  metrics.NewNop(),
		business: uuid.New(),
	}

	f.admin = caller(f.db.AddProfile(models.Profile{BusinessID: f.business, Role: rbac.RoleAdmin, FirstName: ptr("Amina"), LastName: ptr("Otieno")}))
	f.admin2 = caller(f.db.AddProfile(models.Profile{BusinessID: f.business, Role: rbac.RoleAdmin, FirstName: ptr("Brian")}))
	f.user = caller(f.db.AddProfile(models.Profile{BusinessID: f.business, Role: rbac.RoleUser, FirstName: ptr("Carol"), LastName: ptr("Mutua")}))
	f.outsider = caller(f.db.AddProfile(models.Profile{BusinessID: uuid.New(), Role: rbac.RoleAdmin}))

	var err error
	f.service, err = f.db.AddRecord(models.TableServices, f.business, serviceFields())
	require.NoError(t, err)
	f.expense, err = f.db.AddRecord(models.TableExpenses, f.business, expenseFields())
	require.NoError(t, err)

	f.notifications = NewNotificationService(f.db.Notifications, f.db.Profiles, f.queue, f.hub, f.hub, NotificationConfig{
		Timeout:           time.Second,
		FanOutConcurrency: 4,
		ListLimit:         50,
		RetryMaxAttempts:  3,
	}, f.metrics, log)
	f.audit = NewAuditWriter(f.db.ActivityLogs, time.Second, f.metrics, log)
	f.activity = NewActivityService(f.db.ActivityLogs, log)
	f.updates = NewPendingUpdateService(f.db.PendingUpdates, f.db.Records, f.db.Profiles, f.notifications, f.hub, f.metrics, log)
	f.approvals = NewApprovalService(f.db, f.updates, f.db.Records, f.audit, f.notifications, f.hub,
		ApprovalConfig{ConflictCheck: true, Timeout: time.Second}, f.metrics, log)
	f.records = NewRecordService(f.db, f.db.Records, f.updates, f.audit, time.Second, log)
	return f
}

// submitServiceChange files a pending update on the seeded service as the plain user.
func (f *fixture) submitServiceChange(t *testing.T, changes models.FieldMap) *models.PendingUpdate {
	t.Helper()
	p, err := f.updates.Submit(context.Background(), f.user, SubmitInput{
		TableName: models.TableServices,
		RecordID:  f.service.ID,
		NewValues: withChanges(f.service.Fields, changes),
		Reason:    ptr("customer paid a deposit"),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) liveService(t *testing.T) models.FieldMap {
	t.Helper()
	r, err := f.db.Records.Get(context.Background(), f.business, models.TableServices, f.service.ID, false)
	require.NoError(t, err)
	return r.Fields
}
