package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/config"
	"github.com/laundry-desk/backend/internal/http/dto"
	"go.uber.org/zap"
)

const (
	CtxCaller = "caller"
	CtxClaims = "claims"
)

// AuthMiddleware verifies the bearer token and resolves the caller's business
// and role from their profile. WebSocket upgrades may pass the token as ?token=.
func AuthMiddleware(cfg *config.Config, profiles auth.ProfileLookup, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: requestID(c)})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, cfg.JWTIssuer, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid or expired token", RequestID: requestID(c)})
		}

		caller, err := auth.ResolveCaller(c.UserContext(), profiles, claims)
		if err != nil {
			log.Warn("cannot resolve caller",
				zap.String("user_id", claims.UserID.String()),
				zap.Error(err),
			)
			if errors.Is(err, auth.ErrNoProfile) {
				return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "no profile for this account", RequestID: requestID(c)})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error", RequestID: requestID(c)})
		}

		c.Locals(CtxClaims, claims)
		c.Locals(CtxCaller, caller)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		if websocket.IsWebSocketUpgrade(c) && c.Query("token") != "" {
			return c.Query("token"), nil
		}
		return "", errors.New("missing authorization header")
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == header || tokenStr == "" {
		return "", errors.New("invalid authorization format")
	}
	return tokenStr, nil
}

func GetCaller(c *fiber.Ctx) auth.Caller {
	caller, _ := c.Locals(CtxCaller).(auth.Caller)
	return caller
}

func GetClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(CtxClaims).(*auth.Claims)
	return claims
}

// RequirePermission rejects callers whose role lacks permission.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !GetCaller(c).Can(permission) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "admin access required", RequestID: requestID(c)})
		}
		return c.Next()
	}
}
