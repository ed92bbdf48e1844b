package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/events"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) notify(t *testing.T, recipient uuid.UUID, title string) *models.Notification {
	t.Helper()
	n, err := f.notifications.Create(context.Background(), NewNotification{
		RecipientID: recipient,
		BusinessID:  f.business,
		Type:        models.NotificationNewUpdateRequest,
		Title:       title,
		Message:     "message",
	})
	require.NoError(t, err)
	return n
}

func TestCreateValidatesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.notifications.Create(ctx, NewNotification{BusinessID: f.business, Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	f.db.Notifications.FailCreate = func(*models.Notification) error { return errors.New("timeout") }
	_, err = f.notifications.Create(ctx, NewNotification{RecipientID: f.user.UserID, BusinessID: f.business, Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	f.db.Notifications.FailCreate = nil

	n := f.notify(t, f.user.UserID, "hello")
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.False(t, n.IsRead())
}

func TestFanOutCollectsPartialFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin3 := caller(f.db.AddProfile(models.Profile{BusinessID: f.business, Role: "admin"}))

	f.db.Notifications.FailCreate = func(n *models.Notification) error {
		if n.RecipientUserID == f.admin2.UserID {
			return errors.New("connection refused")
		}
		return nil
	}

	res, err := f.notifications.FanOutToAdmins(ctx, AdminBroadcast{
		BusinessID: f.business,
		Type:       models.NotificationNewUpdateRequest,
		Title:      "New services update request",
		Message:    "m",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Recipients)
	assert.Equal(t, 2, res.Delivered)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, f.admin2.UserID, res.Failures[0].RecipientID)

	for _, id := range []uuid.UUID{f.admin.UserID, admin3.UserID} {
		n, err := f.db.Notifications.CountUnread(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	queued, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)
}

func TestMarkReadIsIdempotentAndRecipientOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.notify(t, f.user.UserID, "hello")

	err := f.notifications.MarkRead(ctx, f.admin, n.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.notifications.MarkRead(ctx, f.user, n.ID))
	first, err := f.db.Notifications.GetByID(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	require.NoError(t, f.notifications.MarkRead(ctx, f.user, n.ID))
	second, err := f.db.Notifications.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.ReadAt, *second.ReadAt)

	err = f.notifications.MarkRead(ctx, f.user, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMarkAllReadReportsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var failing uuid.UUID
	for i := 0; i < 5; i++ {
		n := f.notify(t, f.user.UserID, "n")
		if i == 2 {
			failing = n.ID
		}
	}
	f.notify(t, f.admin.UserID, "not mine")
	f.db.Notifications.FailMarkRead = func(id uuid.UUID) error {
		if id == failing {
			return errors.New("deadlock detected")
		}
		return nil
	}

	res, err := f.notifications.MarkAllRead(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Marked)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, failing, res.Failures[0].NotificationID)

	unread, err := f.notifications.UnreadCount(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	adminUnread, err := f.notifications.UnreadCount(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 1, adminUnread)
}

func TestListRecentNewestFirst(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	f.db.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	for _, title := range []string{"first", "second", "third"} {
		f.notify(t, f.user.UserID, title)
	}

	list, err := f.notifications.ListRecent(context.Background(), f.user, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].Title)
	assert.Equal(t, "second", list[1].Title)
}

func TestSubscribeOnlySeesOwnNotifications(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := f.notifications.Subscribe(ctx, f.user)
	require.NoError(t, err)

	f.notify(t, f.admin.UserID, "for the admin")
	n := f.notify(t, f.user.UserID, "for the user")

	select {
	case ev := <-sub.C:
		assert.Equal(t, events.EventNotificationCreated, ev.Type)
		var got models.Notification
		require.NoError(t, ev.Decode(&got))
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a notification event")
	}

	require.NoError(t, f.notifications.MarkRead(ctx, f.user, n.ID))
	ev := <-sub.C
	assert.Equal(t, events.EventNotificationRead, ev.Type)

	cancel()
	assert.Eventually(t, func() bool { return f.hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRedeliverDropsAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.db.Notifications.FailCreate = func(*models.Notification) error { return errors.New("down") }

	_, err := f.notifications.CreateOrQueue(ctx, NewNotification{
		RecipientID: f.user.UserID,
		BusinessID:  f.business,
		Type:        models.NotificationUpdateApproved,
		Title:       "Update request approved",
	})
	require.Error(t, err)

	// RetryMaxAttempts is 3 in the fixture: attempts 2 and 3 happen here.
	_, dropped, err := f.notifications.Redeliver(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	_, dropped, err = f.notifications.Redeliver(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)

	queued, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, queued)
	assert.Equal(t, 1, f.logs.FilterMessage("dropping notification after max attempts").Len())
}

func TestPruneReadKeepsUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-200 * 24 * time.Hour)
	f.db.SetClock(func() time.Time { return old })

	read := f.notify(t, f.user.UserID, "read")
	f.notify(t, f.user.UserID, "unread")
	f.notifications.now = func() time.Time { return old }
	require.NoError(t, f.notifications.MarkRead(ctx, f.user, read.ID))
	f.notifications.now = func() time.Time { return time.Now().UTC() }

	n, err := f.notifications.PruneRead(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := f.notifications.ListRecent(ctx, f.user, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "unread", left[0].Title)
}
