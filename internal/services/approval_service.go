package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/events"
	"github.com/laundry-desk/backend/internal/metrics"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/laundry-desk/backend/internal/repositories"
	"go.uber.org/zap"
)

type ApprovalConfig struct {
	// ConflictCheck refuses an approval when a changed field of the live
	// record no longer matches the submitted snapshot.
	ConflictCheck bool
	Timeout       time.Duration
}

// ApprovalService turns an admin decision into a status transition and, on
// approval, the change to the live record. Both happen in one transaction.
type ApprovalService struct {
	tx        TxManager
	updates   *PendingUpdateService
	records   RecordStore
	audit     AuditLogger
	notifier  Notifier
	publisher events.Publisher
	cfg       ApprovalConfig
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewApprovalService(
	tx TxManager,
	updates *PendingUpdateService,
	records RecordStore,
	audit AuditLogger,
	notifier Notifier,
	publisher events.Publisher,
	cfg ApprovalConfig,
	m *metrics.Metrics,
	log *zap.Logger,
) *ApprovalService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &ApprovalService{
		tx:        tx,
		updates:   updates,
		records:   records,
		audit:     audit,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		log:       log,
	}
}

// appliedChange is what an approval wrote to the live record.
type appliedChange struct {
	old models.FieldMap
	new models.FieldMap
}

// Decide records an admin decision on a pending update. Deciding an update
// that is no longer pending fails with an invalid state error carrying the
// current status.
func (s *ApprovalService) Decide(ctx context.Context, caller auth.Caller, id uuid.UUID, decision string, reason *string) (*models.PendingUpdate, error) {
	start := time.Now()

	if !caller.Can(rbac.PermReviewUpdate) {
		return nil, forbidden(s.log, caller, "decide_pending_update", "admin role required",
			zap.String("pending_update_id", id.String()))
	}
	status, ok := models.StatusForDecision(decision)
	if !ok {
		return nil, apperr.Validation("decision", "must be approve, reject or send_back")
	}
	reason = trimReason(reason)
	if decision != models.DecisionApprove && reason == nil {
		return nil, apperr.Validation("reason", "is required to reject or send back")
	}

	var (
		updated *models.PendingUpdate
		applied *appliedChange
	)
	tctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	err := s.tx.RunInTx(tctx, func(ctx context.Context) error {
		p, err := s.updates.Transition(ctx, caller, id, status, reason)
		if err != nil {
			return err
		}
		if status == models.PendingStatusApproved {
			if applied, err = s.apply(ctx, p); err != nil {
				return err
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		s.metrics.ObserveDecision(decision, outcomeOf(err), start)
		s.log.Warn("decision failed",
			zap.String("pending_update_id", id.String()),
			zap.String("decision", decision),
			zap.String("reviewer_id", caller.UserID.String()),
			zap.Error(err),
		)
		if _, ok := apperr.As(err); !ok {
			err = apperr.Persistence("decide pending update", err)
		}
		return nil, err
	}
	s.metrics.ObserveDecision(decision, metrics.OutcomeOK, start)

	s.log.Info("pending update decided",
		zap.String("pending_update_id", updated.ID.String()),
		zap.String("status", updated.Status),
		zap.String("reviewer_id", caller.UserID.String()),
	)

	s.afterDecision(context.WithoutCancel(ctx), caller, updated, applied)
	return updated, nil
}

// apply writes the changed fields of p to the live record, locked for update.
func (s *ApprovalService) apply(ctx context.Context, p *models.PendingUpdate) (*appliedChange, error) {
	changes := p.ChangedFields()
	live, err := s.records.Get(ctx, p.BusinessID, p.TableName, p.RecordID, true)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Apply(fmt.Errorf("%s record %s no longer exists", p.TableName, p.RecordID))
	}
	if err != nil {
		return nil, apperr.Apply(err)
	}

	if s.cfg.ConflictCheck {
		for _, c := range changes {
			if !models.ValuesEqual(live.Fields[c.Field], c.OldValue) {
				return nil, apperr.Conflict(c.Field, "live record changed since the update was submitted")
			}
		}
	}

	newValues := models.NewValuesOf(changes)
	if err := s.records.Apply(ctx, p.BusinessID, p.TableName, p.RecordID, newValues); err != nil {
		return nil, apperr.Apply(err)
	}
	return &appliedChange{old: live.Fields.Only(newValues.Keys()...), new: newValues}, nil
}

// afterDecision runs the best-effort side effects. None of them can undo
// the committed decision.
func (s *ApprovalService) afterDecision(ctx context.Context, caller auth.Caller, p *models.PendingUpdate, applied *appliedChange) {
	if applied != nil {
		reason := fmt.Sprintf("Approved update request %s", p.ID)
		if p.AdminReason != nil {
			reason = *p.AdminReason
		}
		s.audit.Log(ctx, AuditEntry{
			ActionType: models.ActionUpdate,
			TableName:  p.TableName,
			RecordID:   p.RecordID,
			Reason:     reason,
			BusinessID: p.BusinessID,
			ActorID:    caller.UserID,
			OldValues:  applied.old,
			NewValues:  applied.new,
		})
	}

	if nType, ok := models.NotificationTypeForStatus(p.Status); ok {
		title, message := decisionMessage(p.Status, p.TableName, p.AdminReason)
		data := map[string]any{
			"pending_update_id": p.ID.String(),
			"table_name":        p.TableName,
			"record_id":         p.RecordID.String(),
			"status":            p.Status,
		}
		if p.AdminReason != nil {
			data["reason"] = *p.AdminReason
		}
		_, _ = s.notifier.CreateOrQueue(ctx, NewNotification{
			RecipientID: p.SubmitterID,
			BusinessID:  p.BusinessID,
			Type:        nType,
			Title:       title,
			Message:     message,
			Data:        data,
		})
	}

	submitter := p.SubmitterID
	publishEvent(ctx, s.publisher, s.log, events.StreamPendingUpdates, events.EventPendingUpdateDecided, p.BusinessID, &submitter, p)
}

func outcomeOf(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidState:
		return metrics.OutcomeInvalidState
	case apperr.KindConflict:
		return metrics.OutcomeConflict
	case apperr.KindApply:
		return metrics.OutcomeApplyFailed
	case apperr.KindValidation, apperr.KindForbidden, apperr.KindNotFound:
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
