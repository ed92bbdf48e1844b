package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/events"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/repositories"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type ApprovalSuite struct {
	suite.Suite
	f   *fixture
	ctx context.Context
}

func TestApprovalSuite(t *testing.T) {
	suite.Run(t, new(ApprovalSuite))
}

func (s *ApprovalSuite) SetupTest() {
	s.f = newFixture(s.T())
	s.ctx = context.Background()
}

func (s *ApprovalSuite) submitterNotifications() []models.Notification {
	list, err := s.f.db.Notifications.ListRecent(s.ctx, s.f.user.UserID, 10)
	s.Require().NoError(err)
	return list
}

func (s *ApprovalSuite) activity() []models.ActivityLog {
	logs, err := s.f.db.ActivityLogs.List(s.ctx, s.f.business, repositories.ActivityLogFilter{})
	s.Require().NoError(err)
	return logs
}

func (s *ApprovalSuite) status(id uuid.UUID) string {
	p, err := s.f.db.PendingUpdates.GetByID(s.ctx, id)
	s.Require().NoError(err)
	return p.Status
}

func (s *ApprovalSuite) TestApproveAppliesOnlyChangedFields() {
	sub := s.f.hub.Subscribe(events.Filter{Stream: events.StreamPendingUpdates, BusinessID: s.f.business, UserID: s.f.user.UserID})
	defer sub.Unsubscribe()
	// drain the submitted event
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "1800", "payment_method": models.PaymentMethodMpesa})
	<-sub.C

	// An unrelated field changes on the live record meanwhile.
	s.f.db.SetRecordField(models.TableServices, s.f.service.ID, "description", "Handle with care")

	got, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionApprove, nil)
	s.Require().NoError(err)
	s.Equal(models.PendingStatusApproved, got.Status)
	s.Equal(s.f.admin.UserID, *got.ReviewerID)
	s.Nil(got.AdminReason)

	live := s.f.liveService(s.T())
	s.Equal("1800.00", live["amount"])
	s.Equal(models.PaymentMethodMpesa, live["payment_method"])
	s.Equal("Handle with care", live["description"])
	s.Equal("Jane Wanjiru", live["customer_name"])

	logs := s.activity()
	s.Require().Len(logs, 1)
	s.Equal(models.ActionUpdate, logs[0].ActionType)
	s.Equal(fmt.Sprintf("Approved update request %s", p.ID), logs[0].Reason)
	s.Equal(s.f.admin.UserID, logs[0].ActorUserID)
	s.Equal(models.FieldMap{"amount": "1500.00", "payment_method": nil}, logs[0].OldValues)
	s.Equal(models.FieldMap{"amount": "1800.00", "payment_method": models.PaymentMethodMpesa}, logs[0].NewValues)

	notes := s.submitterNotifications()
	s.Require().Len(notes, 1)
	s.Equal(models.NotificationUpdateApproved, notes[0].Type)
	s.Equal("Update request approved", notes[0].Title)
	s.Equal("Your services update request has been approved and applied.", notes[0].Message)

	select {
	case ev := <-sub.C:
		s.Equal(events.EventPendingUpdateDecided, ev.Type)
		var decided models.PendingUpdate
		s.Require().NoError(ev.Decode(&decided))
		s.Equal(models.PendingStatusApproved, decided.Status)
	case <-time.After(time.Second):
		s.Fail("expected a decided event")
	}
}

func (s *ApprovalSuite) TestRejectAndSendBackNotifySubmitter() {
	cases := []struct {
		decision string
		status   string
		nType    string
		title    string
		message  string
	}{
		{
			decision: models.DecisionReject,
			status:   models.PendingStatusRejected,
			nType:    models.NotificationUpdateRejected,
			title:    "Update request rejected",
			message:  "Your services update request has been rejected. Reason: amount is wrong",
		},
		{
			decision: models.DecisionSendBack,
			status:   models.PendingStatusSentBackForReview,
			nType:    models.NotificationUpdateSentBack,
			title:    "Update request needs review",
			message:  "Your services update request has been sent back for review. Reason: amount is wrong",
		},
	}
	for _, tc := range cases {
		s.Run(tc.decision, func() {
			s.SetupTest()
			before := s.f.liveService(s.T())
			p := s.f.submitServiceChange(s.T(), models.FieldMap{
				"amount":         "9999",
				"customer_name":  "Someone Else",
				"payment_status": models.PaymentStatusFullyPaid,
			})

			got, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, tc.decision, ptr("amount is wrong"))
			s.Require().NoError(err)
			s.Equal(tc.status, got.Status)
			s.Equal("amount is wrong", *got.AdminReason)

			// No field of the record moves, not just the headline one.
			s.Equal(before, s.f.liveService(s.T()))
			s.Empty(s.activity())

			notes := s.submitterNotifications()
			s.Require().Len(notes, 1)
			s.Equal(tc.nType, notes[0].Type)
			s.Equal(tc.title, notes[0].Title)
			s.Equal(tc.message, notes[0].Message)
			s.Equal("amount is wrong", notes[0].Data["reason"])
		})
	}
}

func (s *ApprovalSuite) TestReasonRequiredForRejectAndSendBack() {
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "9999"})
	for _, d := range []string{models.DecisionReject, models.DecisionSendBack} {
		_, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, d, ptr("   "))
		e, ok := apperr.As(err)
		s.Require().True(ok)
		s.Equal(apperr.KindValidation, e.Kind)
		s.Equal("reason", e.Field)
	}
	_, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, "escalate", nil)
	s.ErrorIs(err, apperr.ErrValidation)
	s.Equal(models.PendingStatusPending, s.status(p.ID))
}

func (s *ApprovalSuite) TestNonAdminCannotDecide() {
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "9999"})
	_, err := s.f.approvals.Decide(s.ctx, s.f.user, p.ID, models.DecisionApprove, nil)
	s.ErrorIs(err, apperr.ErrForbidden)
	s.Equal(models.PendingStatusPending, s.status(p.ID))
}

func (s *ApprovalSuite) TestSecondDecisionIsInvalidState() {
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "9999"})
	_, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionApprove, nil)
	s.Require().NoError(err)

	_, err = s.f.approvals.Decide(s.ctx, s.f.admin2, p.ID, models.DecisionReject, ptr("too late"))
	e, ok := apperr.As(err)
	s.Require().True(ok)
	s.Equal(apperr.KindInvalidState, e.Kind)
	s.Equal(models.PendingStatusApproved, e.CurrentStatus)
	s.Equal("9999.00", s.f.liveService(s.T())["amount"])
}

func (s *ApprovalSuite) TestConcurrentDecisionsExactlyOneWins() {
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "2500"})

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		invalids int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			admin := s.f.admin
			decision, reason := models.DecisionApprove, (*string)(nil)
			if i%2 == 1 {
				admin = s.f.admin2
				decision, reason = models.DecisionReject, ptr("duplicate")
			}
			_, err := s.f.approvals.Decide(s.ctx, admin, p.ID, decision, reason)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrInvalidState):
				invalids++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(n-1, invalids)
	s.Len(s.submitterNotifications(), 1)
	s.LessOrEqual(len(s.activity()), 1)
}

func (s *ApprovalSuite) TestApplyFailureLeavesUpdatePending() {
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "2500"})
	s.f.db.Records.FailApply = func(string, uuid.UUID) error { return errors.New("disk full") }

	_, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionApprove, nil)
	s.ErrorIs(err, apperr.ErrApply)

	s.Equal(models.PendingStatusPending, s.status(p.ID))
	s.Equal("1500.00", s.f.liveService(s.T())["amount"])
	s.Empty(s.submitterNotifications())
	s.Empty(s.activity())

	s.f.db.Records.FailApply = nil
	got, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionApprove, nil)
	s.Require().NoError(err)
	s.Equal(models.PendingStatusApproved, got.Status)
}

func (s *ApprovalSuite) TestDeletedRecordIsApplyError() {
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "2500"})
	s.Require().NoError(s.f.db.Records.Delete(s.ctx, s.f.business, models.TableServices, s.f.service.ID))

	_, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionApprove, nil)
	s.ErrorIs(err, apperr.ErrApply)
	s.Equal(models.PendingStatusPending, s.status(p.ID))
}

func (s *ApprovalSuite) TestConflictingLiveEditBlocksApproval() {
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "2500"})
	s.f.db.SetRecordField(models.TableServices, s.f.service.ID, "amount", "1600.00")

	_, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionApprove, nil)
	e, ok := apperr.As(err)
	s.Require().True(ok)
	s.Equal(apperr.KindConflict, e.Kind)
	s.Equal("amount", e.Field)
	s.Equal(models.PendingStatusPending, s.status(p.ID))
	s.Equal("1600.00", s.f.liveService(s.T())["amount"])

	// Rejecting is still possible.
	_, err = s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionReject, ptr("stale"))
	s.NoError(err)
}

func (s *ApprovalSuite) TestConflictCheckDisabledOverwrites() {
	approvals := NewApprovalService(s.f.db, s.f.updates, s.f.db.Records, s.f.audit, s.f.notifications, s.f.hub,
		ApprovalConfig{ConflictCheck: false}, s.f.metrics, zap.NewNop())
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "2500"})
	s.f.db.SetRecordField(models.TableServices, s.f.service.ID, "amount", "1600.00")

	_, err := approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionApprove, nil)
	s.Require().NoError(err)
	s.Equal("2500.00", s.f.liveService(s.T())["amount"])
}

func (s *ApprovalSuite) TestSideEffectFailuresDoNotFailDecision() {
	p := s.f.submitServiceChange(s.T(), models.FieldMap{"amount": "2500"})
	s.f.db.Notifications.FailCreate = func(*models.Notification) error { return errors.New("connection reset") }
	s.f.db.ActivityLogs.FailCreate = errors.New("connection reset")

	got, err := s.f.approvals.Decide(s.ctx, s.f.admin, p.ID, models.DecisionApprove, ptr("verified receipt"))
	s.Require().NoError(err)
	s.Equal(models.PendingStatusApproved, got.Status)
	s.Equal("2500.00", s.f.liveService(s.T())["amount"])

	s.Equal(1, s.f.logs.FilterMessage("failed to write activity log").Len())
	s.Equal(1, s.f.logs.FilterMessage("notification create failed, queueing for retry").Len())

	n, err := s.f.queue.Len(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	s.f.db.Notifications.FailCreate = nil
	delivered, dropped, err := s.f.notifications.Redeliver(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(1, delivered)
	s.Equal(0, dropped)

	notes := s.submitterNotifications()
	s.Require().Len(notes, 1)
	s.Equal(models.NotificationUpdateApproved, notes[0].Type)
}
