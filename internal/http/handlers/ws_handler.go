package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/events"
	"github.com/laundry-desk/backend/internal/middleware"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/laundry-desk/backend/internal/services"
	"go.uber.org/zap"
)

const wsPingInterval = 30 * time.Second

// WSHandler pushes a caller's notification events, and pending update
// activity they may see, over a websocket.
type WSHandler struct {
	notifications *services.NotificationService
	hub           *events.Hub
	log           *zap.Logger
}

func NewWSHandler(notifications *services.NotificationService, hub *events.Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{notifications: notifications, hub: hub, log: log}
}

// WSUpgradeMiddleware checks for websocket upgrade. Locals set by the auth
// middleware, including the caller, carry over to the connection.
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHandler) HandleWS(conn *websocket.Conn) {
	caller, ok := conn.Locals(middleware.CtxCaller).(auth.Caller)
	if !ok {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notes, err := h.notifications.Subscribe(ctx, caller)
	if err != nil {
		h.log.Error("websocket subscribe failed", zap.Error(err))
		conn.Close()
		return
	}
	updates := h.hub.SubscribeContext(ctx, pendingUpdateFilter(caller))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, conn, notes.C, updates.C)
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-done
	conn.Close()
}

// pendingUpdateFilter lets reviewers see every submission in their business;
// submitters only hear about decisions on their own updates.
func pendingUpdateFilter(caller auth.Caller) events.Filter {
	f := events.Filter{
		Stream:     events.StreamPendingUpdates,
		BusinessID: caller.BusinessID,
		UserID:     caller.UserID,
	}
	if !caller.Can(rbac.PermReviewUpdate) {
		f.Types = []string{events.EventPendingUpdateDecided}
	}
	return f
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, notes, updates <-chan events.Event) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		var (
			ev events.Event
			ok bool
		)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
			continue
		case ev, ok = <-notes:
		case ev, ok = <-updates:
		}
		if !ok {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
