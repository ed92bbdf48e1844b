package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/middleware"
	"github.com/laundry-desk/backend/internal/session"
	"go.uber.org/zap"
)

type UserHandler struct {
	profiles auth.ProfileLookup
	monitor  *session.Monitor
	log      *zap.Logger
}

func NewUserHandler(profiles auth.ProfileLookup, monitor *session.Monitor, log *zap.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, monitor: monitor, log: log}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	resp := dto.MeResponse{
		UserID:     caller.UserID.String(),
		BusinessID: caller.BusinessID.String(),
		Role:       caller.Role,
	}
	if p, err := h.profiles.GetByUserID(c.UserContext(), caller.UserID); err == nil {
		resp.Profile = p
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: resp})
}

// Session reports the inactivity state. It does not count as activity.
func (h *UserHandler) Session(c *fiber.Ctx) error {
	st, ok := middleware.GetSessionState(c)
	if !ok {
		claims := middleware.GetClaims(c)
		var err error
		if st, err = h.monitor.Check(c.UserContext(), claims.SessionID, claims.IssuedTime()); err != nil {
			h.log.Error("session check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "session state unavailable", RequestID: middleware.RequestID(c)})
		}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewSessionResponse(st, h.monitor.WarnAfter(), h.monitor.LogoutAfter())})
}

// Ping is the "stay logged in" action; the session middleware already
// recorded the activity.
func (h *UserHandler) Ping(c *fiber.Ctx) error {
	return h.Session(c)
}
