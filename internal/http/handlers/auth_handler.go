package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/config"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/middleware"
	"github.com/laundry-desk/backend/internal/session"
	"go.uber.org/zap"
)

// AuthHandler owns the server side of a login session. The first token is
// issued by the identity provider; this service only extends or ends it.
type AuthHandler struct {
	secret     string
	issuer     string
	expiration time.Duration
	monitor    *session.Monitor
	log        *zap.Logger
}

func NewAuthHandler(cfg *config.Config, monitor *session.Monitor, log *zap.Logger) *AuthHandler {
	expiration := cfg.JWTExpiration
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &AuthHandler{
		secret:     cfg.JWTSecret,
		issuer:     cfg.JWTIssuer,
		expiration: expiration,
		monitor:    monitor,
		log:        log,
	}
}

// Refresh reissues the token for the same session. An idle or logged-out
// session never reaches here because SessionMiddleware rejects it first.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	expiresAt := time.Now().Add(h.expiration).UTC()
	token, err := auth.GenerateJWT(h.secret, h.issuer, claims.UserID, claims.SessionID, h.expiration)
	if err != nil {
		h.log.Error("failed to sign token", zap.String("session_id", claims.SessionID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error", RequestID: middleware.RequestID(c)})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.TokenResponse{Token: token, ExpiresAt: expiresAt}})
}

// Logout ends the session so the token stops working even before it expires.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	if err := h.monitor.End(c.UserContext(), claims.SessionID); err != nil {
		h.log.Error("failed to end session", zap.String("session_id", claims.SessionID), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "logout failed", RequestID: middleware.RequestID(c)})
	}
	h.log.Info("session ended", zap.String("session_id", claims.SessionID), zap.String("user_id", claims.UserID.String()))
	return c.JSON(dto.SuccessResponse{OK: true})
}
