package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/session"
	"go.uber.org/zap"
)

const CtxSession = "session_state"

// SessionMiddleware ends sessions that have been idle past the logout window.
// Every other request counts as activity, except paths listed as passive,
// which are only checked. Tracker errors fail open.
func SessionMiddleware(monitor *session.Monitor, log *zap.Logger, passive ...string) fiber.Handler {
	skip := make(map[string]struct{}, len(passive))
	for _, p := range passive {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			return c.Next()
		}

		var (
			st  session.State
			err error
		)
		if _, ok := skip[c.Path()]; ok {
			st, err = monitor.Check(c.UserContext(), claims.SessionID, claims.IssuedTime())
		} else {
			st, err = monitor.Touch(c.UserContext(), claims.SessionID, claims.IssuedTime())
		}
		if err != nil {
			log.Warn("session tracker unavailable", zap.String("session_id", claims.SessionID), zap.Error(err))
			return c.Next()
		}
		if st.Expired() {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "session expired", RequestID: requestID(c)})
		}

		c.Locals(CtxSession, st)
		return c.Next()
	}
}

func GetSessionState(c *fiber.Ctx) (session.State, bool) {
	st, ok := c.Locals(CtxSession).(session.State)
	return st, ok
}
