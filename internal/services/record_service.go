package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/rbac"
	"go.uber.org/zap"
)

type EditInput struct {
	TableName string
	RecordID  uuid.UUID
	Values    models.FieldMap
	Reason    *string
}

// EditResult carries the applied record for direct edits, or the staged
// update when the edit was routed to review.
type EditResult struct {
	Record        *models.Record        `json:"record,omitempty"`
	PendingUpdate *models.PendingUpdate `json:"pending_update,omitempty"`
}

// RecordService is the editing entry point for reviewable records. Admins
// write directly; everyone else goes through review.
type RecordService struct {
	tx      TxManager
	records RecordStore
	updates *PendingUpdateService
	audit   AuditLogger
	timeout time.Duration
	log     *zap.Logger
}

func NewRecordService(tx TxManager, records RecordStore, updates *PendingUpdateService, audit AuditLogger, timeout time.Duration, log *zap.Logger) *RecordService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RecordService{tx: tx, records: records, updates: updates, audit: audit, timeout: timeout, log: log}
}

func (s *RecordService) Get(ctx context.Context, caller auth.Caller, table string, id uuid.UUID) (*models.Record, error) {
	if !models.IsReviewableTable(table) {
		return nil, apperr.Validation("table_name", "must be services, expenses or profiles")
	}
	r, err := s.records.Get(ctx, caller.BusinessID, table, id, false)
	return r, storeErr(err, "record", "load record")
}

func (s *RecordService) Edit(ctx context.Context, caller auth.Caller, in EditInput) (*EditResult, error) {
	if !caller.Can(rbac.PermEditDirect) {
		p, err := s.updates.Submit(ctx, caller, SubmitInput{
			TableName: in.TableName,
			RecordID:  in.RecordID,
			NewValues: in.Values,
			Reason:    in.Reason,
		})
		if err != nil {
			return nil, err
		}
		return &EditResult{PendingUpdate: p}, nil
	}

	if !models.IsReviewableTable(in.TableName) {
		return nil, apperr.Validation("table_name", "must be services, expenses or profiles")
	}
	reason := trimReason(in.Reason)
	if reason == nil {
		return nil, apperr.Validation("reason", "is required")
	}
	values, err := models.Canonicalize(in.TableName, in.Values)
	if err != nil {
		return nil, err
	}

	var applied appliedChange
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err = s.tx.RunInTx(tctx, func(ctx context.Context) error {
		live, err := s.records.Get(ctx, caller.BusinessID, in.TableName, in.RecordID, true)
		if err != nil {
			return storeErr(err, "record", "load record")
		}
		changes := models.Diff(live.Fields, values)
		if len(changes) == 0 {
			return apperr.Validation("values", "no fields changed")
		}
		applied = appliedChange{old: models.OldValuesOf(changes), new: models.NewValuesOf(changes)}
		if err := s.records.Apply(ctx, caller.BusinessID, in.TableName, in.RecordID, applied.new); err != nil {
			return apperr.Persistence("update record", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(context.WithoutCancel(ctx), AuditEntry{
		ActionType: models.ActionUpdate,
		TableName:  in.TableName,
		RecordID:   in.RecordID,
		Reason:     *reason,
		BusinessID: caller.BusinessID,
		ActorID:    caller.UserID,
		OldValues:  applied.old,
		NewValues:  applied.new,
	})

	r, err := s.records.Get(ctx, caller.BusinessID, in.TableName, in.RecordID, false)
	if err != nil {
		return nil, storeErr(err, "record", "reload record")
	}
	return &EditResult{Record: r}, nil
}

// Delete removes a service or expense. The old snapshot goes to the activity log.
func (s *RecordService) Delete(ctx context.Context, caller auth.Caller, table string, id uuid.UUID, reason *string) error {
	if !caller.Can(rbac.PermDeleteRecord) {
		return forbidden(s.log, caller, "delete_record", "admin role required",
			zap.String("table_name", table), zap.String("record_id", id.String()))
	}
	if table != models.TableServices && table != models.TableExpenses {
		return apperr.Validation("table_name", "must be services or expenses")
	}
	r := trimReason(reason)
	if r == nil {
		return apperr.Validation("reason", "is required")
	}

	var old models.FieldMap
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.tx.RunInTx(tctx, func(ctx context.Context) error {
		live, err := s.records.Get(ctx, caller.BusinessID, table, id, true)
		if err != nil {
			return storeErr(err, "record", "load record")
		}
		old = live.Fields
		if err := s.records.Delete(ctx, caller.BusinessID, table, id); err != nil {
			return storeErr(err, "record", "delete record")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Log(context.WithoutCancel(ctx), AuditEntry{
		ActionType: models.ActionDelete,
		TableName:  table,
		RecordID:   id,
		Reason:     *r,
		BusinessID: caller.BusinessID,
		ActorID:    caller.UserID,
		OldValues:  old,
	})
	return nil
}
