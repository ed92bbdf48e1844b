package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/middleware"
	"github.com/laundry-desk/backend/internal/repositories"
	"github.com/laundry-desk/backend/internal/services"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	activity *services.ActivityService
	log      *zap.Logger
}

func NewActivityHandler(activity *services.ActivityService, log *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, log: log}
}

func (h *ActivityHandler) List(c *fiber.Ctx) error {
	recordID, ok := optUUIDQuery(c, "record_id")
	if !ok {
		return badRequest(c, "record_id", "must be a uuid")
	}
	actor, ok := optUUIDQuery(c, "user_id")
	if !ok {
		return badRequest(c, "user_id", "must be a uuid")
	}

	logs, err := h.activity.List(c.UserContext(), middleware.GetCaller(c), repositories.ActivityLogFilter{
		TableName:   optStringQuery(c, "table_name"),
		RecordID:    recordID,
		ActorUserID: actor,
		ActionType:  optStringQuery(c, "action_type"),
		Limit:       intQuery(c, "limit"),
		Offset:      intQuery(c, "offset"),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}
