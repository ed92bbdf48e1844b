package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/metrics"
	"github.com/laundry-desk/backend/internal/models"
	"go.uber.org/zap"
)

type AuditEntry struct {
	ActionType string
	TableName  string
	RecordID   uuid.UUID
	Reason     string
	BusinessID uuid.UUID
	ActorID    uuid.UUID
	OldValues  models.FieldMap
	NewValues  models.FieldMap
}

// AuditWriter appends activity log entries on behalf of sensitive operations.
// Failures are logged and counted, never returned: the operation being
// audited has already happened.
type AuditWriter struct {
	repo    ActivityLogStore
	timeout time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewAuditWriter(repo ActivityLogStore, timeout time.Duration, m *metrics.Metrics, log *zap.Logger) *AuditWriter {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &AuditWriter{repo: repo, timeout: timeout, metrics: m, log: log}
}

func (w *AuditWriter) Log(ctx context.Context, e AuditEntry) {
	fields := []zap.Field{
		zap.String("action_type", e.ActionType),
		zap.String("table_name", e.TableName),
		zap.String("record_id", e.RecordID.String()),
		zap.String("actor_user_id", e.ActorID.String()),
	}

	reason := strings.TrimSpace(e.Reason)
	switch {
	case reason == "":
		w.fail("activity log entry refused: reason is required", fields)
		return
	case !models.IsValidAction(e.ActionType):
		w.fail("activity log entry refused: unknown action type", fields)
		return
	case !models.IsLoggedTable(e.TableName):
		w.fail("activity log entry refused: unknown table", fields)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	entry := &models.ActivityLog{
		BusinessID:  e.BusinessID,
		ActorUserID: e.ActorID,
		ActionType:  e.ActionType,
		TableName:   e.TableName,
		RecordID:    e.RecordID,
		OldValues:   e.OldValues,
		NewValues:   e.NewValues,
		Reason:      reason,
	}
	if err := w.repo.Create(ctx, entry); err != nil {
		w.fail("failed to write activity log", append(fields, zap.Error(err)))
	}
}

func (w *AuditWriter) fail(msg string, fields []zap.Field) {
	w.metrics.AuditFailures.Inc()
	w.log.Error(msg, fields...)
}
