package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

type SubmitInput struct {
	TableName string
	RecordID  uuid.UUID
	// OldValues is optional; when nil the live record is snapshotted.
	OldValues models.FieldMap
	NewValues models.FieldMap
	Reason    *string
}

// PendingUpdateService stages proposed record changes for admin review.
type PendingUpdateService struct {
	repo      PendingUpdateStore
	records   RecordStore
	profiles  ProfileStore
	notifier  Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewPendingUpdateService(
	repo PendingUpdateStore,
	records RecordStore,
	profiles ProfileStore,
	notifier Notifier,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *zap.Logger,
) *PendingUpdateService {
	return &PendingUpdateService{
		repo:      repo,
		records:   records,
		profiles:  profiles,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit persists a new pending update and tells every admin of the business.
// Submitter and business always come from the caller.
func (s *PendingUpdateService) Submit(ctx context.Context, caller auth.Caller, in SubmitInput) (*models.PendingUpdate, error) {
	if !caller.Can(rbac.PermSubmitUpdate) {
		return nil, forbidden(s.log, caller, "submit_pending_update", "admins edit records directly")
	}
	if !models.IsReviewableTable(in.TableName) {
		return nil, apperr.Validation("table_name", "must be services, expenses or profiles")
	}
	if in.RecordID == uuid.Nil {
		return nil, apperr.Validation("record_id", "is required")
	}
	if len(in.NewValues) == 0 {
		return nil, apperr.Validation("new_values", "is required")
	}
	if in.OldValues != nil {
		if key, ok := models.MismatchedKey(in.OldValues, in.NewValues); ok {
			return nil, apperr.Validation(key, "must be present in both old_values and new_values")
		}
	}

	newValues, err := models.Canonicalize(in.TableName, in.NewValues)
	if err != nil {
		return nil, err
	}

	live, err := s.records.Get(ctx, caller.BusinessID, in.TableName, in.RecordID, false)
	if err != nil {
		return nil, storeErr(err, "record", "load record")
	}

	// A client-held snapshot must still describe the live record; otherwise
	// the stored diff would not be what approval applies.
	oldValues := live.Fields
	if in.OldValues != nil {
		supplied, err := models.Canonicalize(in.TableName, in.OldValues)
		if err != nil {
			return nil, err
		}
		for _, k := range supplied.Keys() {
			if !models.ValuesEqual(supplied[k], live.Fields[k]) {
				return nil, apperr.Conflict(k, "old_values no longer match the live record")
			}
		}
	}
	if len(models.Diff(oldValues, newValues)) == 0 {
		return nil, apperr.Validation("new_values", "no fields changed")
	}

	p := &models.PendingUpdate{
		BusinessID:      caller.BusinessID,
		TableName:       in.TableName,
		RecordID:        in.RecordID,
		SubmitterID:     caller.UserID,
		OldValues:       oldValues,
		NewValues:       newValues,
		Status:          models.PendingStatusPending,
		SubmitterReason: trimReason(in.Reason),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Persistence("create pending update", err)
	}
	s.metrics.IncSubmission(p.TableName)

	s.log.Info("pending update submitted",
		zap.String("pending_update_id", p.ID.String()),
		zap.String("table_name", p.TableName),
		zap.String("record_id", p.RecordID.String()),
		zap.String("submitter_id", p.SubmitterID.String()),
	)

	s.announce(context.WithoutCancel(ctx), p)
	return p, nil
}

// announce runs the best-effort side effects of a submission.
func (s *PendingUpdateService) announce(ctx context.Context, p *models.PendingUpdate) {
	requester := "A user"
	if prof, err := s.profiles.GetByUserID(ctx, p.SubmitterID); err == nil {
		requester = prof.DisplayName()
	}

	if _, err := s.notifier.FanOutToAdmins(ctx, AdminBroadcast{
		BusinessID: p.BusinessID,
		Type:       models.NotificationNewUpdateRequest,
		Title:      newRequestTitle(p.TableName),
		Message:    newRequestMessage(requester, p.TableName),
		Data: map[string]any{
			"table_name":        p.TableName,
			"record_id":         p.RecordID.String(),
			"requested_by":      requester,
			"pending_update_id": p.ID.String(),
		},
	}); err != nil {
		s.log.Error("admin notification fan-out failed",
			zap.String("pending_update_id", p.ID.String()),
			zap.Error(err),
		)
	}

	publishEvent(ctx, s.publisher, s.log, events.StreamPendingUpdates, events.EventPendingUpdateSubmitted, p.BusinessID, nil, p)
}

// ListForBusiness lists updates newest first. Callers without business-wide
// visibility only ever see their own submissions.
func (s *PendingUpdateService) ListForBusiness(ctx context.Context, caller auth.Caller, businessID uuid.UUID, f repositories.PendingUpdateFilter) ([]models.PendingUpdate, error) {
	if businessID != caller.BusinessID {
		return nil, forbidden(s.log, caller, "list_pending_updates", "business is not accessible",
			zap.String("business_id", businessID.String()))
	}
	if f.Status != nil && !models.IsValidPendingStatus(*f.Status) {
		return nil, apperr.Validation("status", "unknown status")
	}
	if f.TableName != nil && !models.IsReviewableTable(*f.TableName) {
		return nil, apperr.Validation("table_name", "must be services, expenses or profiles")
	}
	submitter, err := s.visibleSubmitter(caller, "list_pending_updates")
	if err != nil {
		return nil, err
	}
	if submitter != nil {
		f.SubmitterID = submitter
	}
	list, err := s.repo.List(ctx, businessID, f)
	return list, storeErr(err, "pending updates", "list pending updates")
}

func (s *PendingUpdateService) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.PendingUpdate, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "pending update", "get pending update")
	}
	if p.BusinessID != caller.BusinessID {
		return nil, forbidden(s.log, caller, "get_pending_update", "pending update belongs to another business",
			zap.String("pending_update_id", id.String()))
	}
	submitter, err := s.visibleSubmitter(caller, "get_pending_update")
	if err != nil {
		return nil, err
	}
	if submitter != nil && p.SubmitterID != *submitter {
		return nil, forbidden(s.log, caller, "get_pending_update", "pending update belongs to another user",
			zap.String("pending_update_id", id.String()))
	}
	return p, nil
}

// Transition moves a pending update out of pending. The write is a
// compare-and-set on status, so of two concurrent callers exactly one wins.
func (s *PendingUpdateService) Transition(ctx context.Context, caller auth.Caller, id uuid.UUID, status string, reason *string) (*models.PendingUpdate, error) {
	if !caller.Can(rbac.PermReviewUpdate) {
		return nil, forbidden(s.log, caller, "transition_pending_update", "admin role required",
			zap.String("pending_update_id", id.String()))
	}
	p, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPending() {
		return nil, apperr.InvalidState(p.Status)
	}
	if !models.IsValidTransition(p.Status, status) {
		return nil, apperr.Validation("status", fmt.Sprintf("cannot move from %s to %s", p.Status, status))
	}

	reviewer := caller.UserID
	updated, err := s.repo.Transition(ctx, repositories.TransitionParams{
		ID:          id,
		BusinessID:  caller.BusinessID,
		Status:      status,
		ReviewerID:  reviewer,
		AdminReason: trimReason(reason),
		At:          s.now(),
	})
	if errors.Is(err, repositories.ErrNotPending) {
		current, gerr := s.repo.GetByID(ctx, id)
		if gerr != nil {
			return nil, storeErr(gerr, "pending update", "reload pending update")
		}
		return nil, apperr.InvalidState(current.Status)
	}
	if err != nil {
		return nil, apperr.Persistence("transition pending update", err)
	}
	return updated, nil
}

// PendingCount is the number of updates awaiting review visible to the caller.
func (s *PendingUpdateService) PendingCount(ctx context.Context, caller auth.Caller) (int, error) {
	submitter, err := s.visibleSubmitter(caller, "count_pending_updates")
	if err != nil {
		return 0, err
	}
	n, err := s.repo.CountByStatus(ctx, caller.BusinessID, models.PendingStatusPending, submitter)
	return n, storeErr(err, "pending updates", "count pending updates")
}

// visibleSubmitter narrows reads to the caller's own submissions unless the
// role may see the whole business. A nil result means no narrowing.
func (s *PendingUpdateService) visibleSubmitter(caller auth.Caller, action string) (*uuid.UUID, error) {
	if caller.Can(rbac.PermViewBusinessUpdate) {
		return nil, nil
	}
	if !caller.Can(rbac.PermViewOwnUpdates) {
		return nil, forbidden(s.log, caller, action, "role may not view pending updates")
	}
	own := caller.UserID
	return &own, nil
}

// History lists every update filed against one record, including sent-back ones.
func (s *PendingUpdateService) History(ctx context.Context, caller auth.Caller, table string, recordID uuid.UUID) ([]models.PendingUpdate, error) {
	if !models.IsReviewableTable(table) {
		return nil, apperr.Validation("table_name", "must be services, expenses or profiles")
	}
	return s.ListForBusiness(ctx, caller, caller.BusinessID, repositories.PendingUpdateFilter{
		TableName: &table,
		RecordID:  &recordID,
		Limit:     200,
	})
}

func trimReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	r := strings.TrimSpace(*reason)
	if r == "" {
		return nil
	}
	return &r
}

func publishEvent(ctx context.Context, pub events.Publisher, log *zap.Logger, stream, eventType string, businessID uuid.UUID, userID *uuid.UUID, payload any) {
	if pub == nil {
		return
	}
	ev, err := events.New(eventType, businessID, userID, payload)
	if err == nil {
		err = pub.Publish(ctx, stream, ev)
	}
	if err != nil {
		log.Warn("failed to publish event", zap.String("stream", stream), zap.String("type", eventType), zap.Error(err))
	}
}
