package http

import (
	nethttp "net/http"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/config"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/http/handlers"
	"github.com/laundry-desk/backend/internal/middleware"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/laundry-desk/backend/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Meta          *handlers.MetaHandler
	User          *handlers.UserHandler
	PendingUpdate *handlers.PendingUpdateHandler
	Record        *handlers.RecordHandler
	Notification  *handlers.NotificationHandler
	Activity      *handlers.ActivityHandler
	WS            *handlers.WSHandler
}

// NewApp builds the fiber app used by the API. Request values are stored past
// the handler, so they must not alias fasthttp's reused buffers.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		Immutable: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: middleware.RequestID(c)})
		},
	})
}

// SetupRouter mounts the API. rdb and metrics may be nil, which disables
// rate limiting and the metrics endpoint respectively.
func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	profiles auth.ProfileLookup,
	monitor *session.Monitor,
	metrics nethttp.Handler,
	h Handlers,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	api := app.Group("/api/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(dto.SuccessResponse{OK: true})
	})

	// Public reference data
	api.Get("/meta/tables", h.Meta.GetTables)
	api.Get("/meta/enums", h.Meta.GetEnums)

	// Protected endpoints
	protected := api.Group("",
		middleware.AuthMiddleware(cfg, profiles, log),
		middleware.SessionMiddleware(monitor, log, "/api/v1/me/session"),
	)
	if rdb != nil {
		protected.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))
	}

	// User and session
	protected.Get("/me", h.User.GetMe)
	protected.Get("/me/session", h.User.Session)
	protected.Post("/me/ping", h.User.Ping)
	protected.Post("/auth/refresh", h.Auth.Refresh)
	protected.Post("/auth/logout", h.Auth.Logout)

	// Pending updates
	protected.Post("/pending-updates", h.PendingUpdate.Submit)
	protected.Get("/pending-updates", h.PendingUpdate.List)
	protected.Get("/pending-updates/count", h.PendingUpdate.Count)
	protected.Get("/pending-updates/:id", h.PendingUpdate.Get)
	protected.Post("/pending-updates/:id/decision", middleware.RequirePermission(rbac.PermReviewUpdate), h.PendingUpdate.Decide)

	// Records
	protected.Get("/records/:table/:id", h.Record.Get)
	protected.Put("/records/:table/:id", h.Record.Edit)
	protected.Delete("/records/:table/:id", h.Record.Delete)
	protected.Get("/records/:table/:id/pending-updates", h.Record.History)

	// Notifications
	protected.Get("/notifications", h.Notification.List)
	protected.Get("/notifications/unread-count", h.Notification.UnreadCount)
	protected.Post("/notifications/read-all", h.Notification.MarkAllRead)
	protected.Post("/notifications/:id/read", h.Notification.MarkRead)

	// Activity history
	protected.Get("/activity-logs", middleware.RequirePermission(rbac.PermViewActivityLog), h.Activity.List)

	// WebSocket
	protected.Use("/ws", handlers.WSUpgradeMiddleware())
	protected.Get("/ws", websocket.New(h.WS.HandleWS))
}
