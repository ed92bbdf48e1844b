package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/middleware"
	"github.com/laundry-desk/backend/internal/services"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	log           *zap.Logger
}

func NewNotificationHandler(notifications *services.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	list, err := h.notifications.ListRecent(c.UserContext(), middleware.GetCaller(c), intQuery(c, "limit"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.notifications.UnreadCount(c.UserContext(), middleware.GetCaller(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.CountResponse{Count: n}})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "id", "must be a uuid")
	}
	if err := h.notifications.MarkRead(c.UserContext(), middleware.GetCaller(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	res, err := h.notifications.MarkAllRead(c.UserContext(), middleware.GetCaller(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}
