package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/events"
	"github.com/laundry-desk/backend/internal/metrics"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Failure stages reported to metrics.
const (
	stageCreate   = "create"
	stageFanOut   = "fan_out"
	stageMarkRead = "mark_read"
	stageEnqueue  = "enqueue"
	stagePublish  = "publish"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type NotificationConfig struct {
	Timeout           time.Duration
	FanOutConcurrency int
	ListLimit         int
	RetryMaxAttempts  int
}

type NewNotification struct {
	RecipientID uuid.UUID
	BusinessID  uuid.UUID
	Type        string
	Title       string
	Message     string
	Data        map[string]any
}

type AdminBroadcast struct {
	BusinessID uuid.UUID
	Type       string
	Title      string
	Message    string
	Data       map[string]any
}

type DeliveryFailure struct {
	RecipientID uuid.UUID `json:"user_id"`
	Error       string    `json:"error"`
}

type FanOutResult struct {
	Recipients int               `json:"recipients"`
	Delivered  int               `json:"delivered"`
	Failures   []DeliveryFailure `json:"failures,omitempty"`
}

type MarkFailure struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Error          string    `json:"error"`
}

type BatchResult struct {
	Marked   int           `json:"marked"`
	Failures []MarkFailure `json:"failures,omitempty"`
}

type NotificationService struct {
	repo      NotificationStore
	profiles  ProfileStore
	queue     RetryQueue
	publisher events.Publisher
	hub       *events.Hub
	cfg       NotificationConfig
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewNotificationService(
	repo NotificationStore,
	profiles ProfileStore,
	queue RetryQueue,
	publisher events.Publisher,
	hub *events.Hub,
	cfg NotificationConfig,
	m *metrics.Metrics,
	log *zap.Logger,
) *NotificationService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FanOutConcurrency <= 0 {
		cfg.FanOutConcurrency = 1
	}
	if cfg.ListLimit <= 0 || cfg.ListLimit > maxListLimit {
		cfg.ListLimit = defaultListLimit
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 5
	}
	return &NotificationService{
		repo:      repo,
		profiles:  profiles,
		queue:     queue,
		publisher: publisher,
		hub:       hub,
		cfg:       cfg,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create persists one notification and announces it on the notifications stream.
// The store call is bounded by the configured timeout.
func (s *NotificationService) Create(ctx context.Context, in NewNotification) (*models.Notification, error) {
	if in.RecipientID == uuid.Nil {
		return nil, apperr.Validation("user_id", "is required")
	}
	if in.BusinessID == uuid.Nil {
		return nil, apperr.Validation("business_id", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title", "is required")
	}

	n := &models.Notification{
		BusinessID:      in.BusinessID,
		RecipientUserID: in.RecipientID,
		Type:            in.Type,
		Title:           in.Title,
		Message:         in.Message,
		Data:            in.Data,
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if err := s.repo.Create(cctx, n); err != nil {
		s.metrics.IncNotificationFailure(stageCreate)
		return nil, apperr.Persistence("create notification", err)
	}
	s.metrics.NotificationsCreated.Inc()

	s.publish(ctx, events.EventNotificationCreated, n)
	return n, nil
}

// CreateOrQueue is Create for workflow side effects: a failed create is
// logged and handed to the retry queue instead of failing the caller.
func (s *NotificationService) CreateOrQueue(ctx context.Context, in NewNotification) (*models.Notification, error) {
	n, err := s.Create(ctx, in)
	if err == nil {
		return n, nil
	}
	s.log.Warn("notification create failed, queueing for retry",
		zap.String("recipient_user_id", in.RecipientID.String()),
		zap.String("type", in.Type),
		zap.Error(err),
	)
	if apperr.KindOf(err) == apperr.KindPersistence {
		s.enqueue(ctx, in, 1, err)
	}
	return nil, err
}

// FanOutToAdmins creates one notification per admin of the business. Each
// create is independent; failures are collected and queued for retry.
func (s *NotificationService) FanOutToAdmins(ctx context.Context, in AdminBroadcast) (FanOutResult, error) {
	lctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	admins, err := s.profiles.ListAdmins(lctx, in.BusinessID)
	cancel()
	if err != nil {
		s.metrics.IncNotificationFailure(stageFanOut)
		return FanOutResult{}, apperr.Persistence("list admins", err)
	}

	var (
		mu     sync.Mutex
		result FanOutResult
		g      errgroup.Group
	)
	g.SetLimit(s.cfg.FanOutConcurrency)

	for _, admin := range admins {
		result.Recipients++
		recipient := admin.UserID
		g.Go(func() error {
			_, err := s.CreateOrQueue(ctx, NewNotification{
				RecipientID: recipient,
				BusinessID:  in.BusinessID,
				Type:        in.Type,
				Title:       in.Title,
				Message:     in.Message,
				Data:        in.Data,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, DeliveryFailure{RecipientID: recipient, Error: err.Error()})
				return nil
			}
			result.Delivered++
			return nil
		})
	}
	_ = g.Wait()

	if len(result.Failures) > 0 {
		s.log.Warn("admin fan-out partially failed",
			zap.String("business_id", in.BusinessID.String()),
			zap.Int("recipients", result.Recipients),
			zap.Int("failed", len(result.Failures)),
		)
	}
	return result, nil
}

// MarkRead sets read_at once. Marking an already read notification is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, caller auth.Caller, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "notification", "get notification")
	}
	if n.RecipientUserID != caller.UserID || n.BusinessID != caller.BusinessID {
		return forbidden(s.log, caller, "mark_notification_read", "notification belongs to another user",
			zap.String("notification_id", id.String()))
	}
	if n.IsRead() {
		return nil
	}
	return s.markRead(ctx, n)
}

func (s *NotificationService) markRead(ctx context.Context, n *models.Notification) error {
	at := s.now()
	changed, err := s.repo.MarkRead(ctx, n.ID, at)
	if err != nil {
		s.metrics.IncNotificationFailure(stageMarkRead)
		return apperr.Persistence("mark notification read", err)
	}
	if changed {
		n.ReadAt = &at
		s.publish(ctx, events.EventNotificationRead, n)
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller. Individual
// failures are reported in the result and do not stop the batch.
func (s *NotificationService) MarkAllRead(ctx context.Context, caller auth.Caller) (BatchResult, error) {
	ids, err := s.repo.UnreadIDs(ctx, caller.UserID)
	if err != nil {
		return BatchResult{}, storeErr(err, "notifications", "list unread notifications")
	}

	var (
		mu     sync.Mutex
		result BatchResult
		g      errgroup.Group
	)
	g.SetLimit(s.cfg.FanOutConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			err := s.markRead(ctx, &models.Notification{ID: id, BusinessID: caller.BusinessID, RecipientUserID: caller.UserID})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, MarkFailure{NotificationID: id, Error: err.Error()})
				return nil
			}
			result.Marked++
			return nil
		})
	}
	_ = g.Wait()

	if len(result.Failures) > 0 {
		s.log.Warn("mark all read partially failed",
			zap.String("user_id", caller.UserID.String()),
			zap.Int("failed", len(result.Failures)),
		)
	}
	return result, nil
}

// ListRecent returns the caller's notifications, newest first.
func (s *NotificationService) ListRecent(ctx context.Context, caller auth.Caller, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = s.cfg.ListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := s.repo.ListRecent(ctx, caller.UserID, limit)
	return list, storeErr(err, "notifications", "list notifications")
}

func (s *NotificationService) UnreadCount(ctx context.Context, caller auth.Caller) (int, error) {
	n, err := s.repo.CountUnread(ctx, caller.UserID)
	return n, storeErr(err, "notifications", "count unread notifications")
}

// Subscribe delivers notification events addressed to the caller until ctx
// is done or the subscription is released.
func (s *NotificationService) Subscribe(ctx context.Context, caller auth.Caller) (*events.Subscription, error) {
	if s.hub == nil {
		return nil, apperr.Internal("subscribe", errors.New("push channel not configured"))
	}
	return s.hub.SubscribeContext(ctx, events.Filter{
		Stream:     events.StreamNotifications,
		BusinessID: caller.BusinessID,
		UserID:     caller.UserID,
	}), nil
}

// Redeliver drains up to batch queued notifications and retries them. Items
// that fail again are requeued until the attempt limit, then dropped.
func (s *NotificationService) Redeliver(ctx context.Context, batch int) (delivered, dropped int, err error) {
	items, err := s.queue.Dequeue(ctx, batch)
	if err != nil {
		return 0, 0, apperr.Persistence("dequeue notifications", err)
	}
	for _, item := range items {
		in := NewNotification{
			RecipientID: item.Notification.RecipientUserID,
			BusinessID:  item.Notification.BusinessID,
			Type:        item.Notification.Type,
			Title:       item.Notification.Title,
			Message:     item.Notification.Message,
			Data:        item.Notification.Data,
		}
		if _, cerr := s.Create(ctx, in); cerr == nil {
			delivered++
			s.metrics.NotificationRetries.WithLabelValues(metrics.OutcomeOK).Inc()
			continue
		} else if item.Attempts+1 >= s.cfg.RetryMaxAttempts {
			dropped++
			s.metrics.NotificationRetries.WithLabelValues("dropped").Inc()
			s.log.Error("dropping notification after max attempts",
				zap.String("recipient_user_id", in.RecipientID.String()),
				zap.String("type", in.Type),
				zap.Int("attempts", item.Attempts+1),
				zap.Error(cerr),
			)
		} else {
			s.metrics.NotificationRetries.WithLabelValues(metrics.OutcomeError).Inc()
			s.enqueue(ctx, in, item.Attempts+1, cerr)
		}
	}
	return delivered, dropped, nil
}

// PruneRead deletes read notifications older than the cutoff.
func (s *NotificationService) PruneRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.repo.DeleteReadBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, apperr.Persistence("prune notifications", err)
	}
	return n, nil
}

func (s *NotificationService) enqueue(ctx context.Context, in NewNotification, attempts int, cause error) {
	item := repositories.RetryItem{
		Notification: models.Notification{
			BusinessID:      in.BusinessID,
			RecipientUserID: in.RecipientID,
			Type:            in.Type,
			Title:           in.Title,
			Message:         in.Message,
			Data:            in.Data,
		},
		Attempts:   attempts,
		LastError:  cause.Error(),
		EnqueuedAt: s.now(),
	}
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()
	if err := s.queue.Enqueue(qctx, item); err != nil {
		s.metrics.IncNotificationFailure(stageEnqueue)
		s.log.Error("failed to queue notification for retry",
			zap.String("recipient_user_id", in.RecipientID.String()),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) publish(ctx context.Context, eventType string, n *models.Notification) {
	if s.publisher == nil {
		return
	}
	recipient := n.RecipientUserID
	ev, err := events.New(eventType, n.BusinessID, &recipient, n)
	if err == nil {
		err = s.publisher.Publish(ctx, events.StreamNotifications, ev)
	}
	if err != nil {
		s.metrics.IncNotificationFailure(stagePublish)
		s.log.Warn("failed to publish notification event", zap.String("type", eventType), zap.Error(err))
	}
}
