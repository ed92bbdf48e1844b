package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/middleware"
	"github.com/laundry-desk/backend/internal/services"
	"go.uber.org/zap"
)

type RecordHandler struct {
	records *services.RecordService
	updates *services.PendingUpdateService
	log     *zap.Logger
}

func NewRecordHandler(records *services.RecordService, updates *services.PendingUpdateService, log *zap.Logger) *RecordHandler {
	return &RecordHandler{records: records, updates: updates, log: log}
}

func (h *RecordHandler) Get(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "id", "must be a uuid")
	}
	r, err := h.records.Get(c.UserContext(), middleware.GetCaller(c), c.Params("table"), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: r})
}

// Edit applies directly for admins (200) or stages a pending update (202).
func (h *RecordHandler) Edit(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "id", "must be a uuid")
	}
	var req dto.EditRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.records.Edit(c.UserContext(), middleware.GetCaller(c), services.EditInput{
		TableName: c.Params("table"),
		RecordID:  id,
		Values:    req.Values,
		Reason:    req.Reason,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	if res.PendingUpdate != nil {
		view := dto.NewPendingUpdateView(res.PendingUpdate)
		return c.Status(fiber.StatusAccepted).JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"pending_update": view}})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"record": res.Record}})
}

func (h *RecordHandler) Delete(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "id", "must be a uuid")
	}
	var req dto.DeleteRecordRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "body", "invalid request")
		}
	}
	if req.Reason == "" {
		req.Reason = c.Query("reason")
	}
	if err := dto.Validate(&req); err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.records.Delete(c.UserContext(), middleware.GetCaller(c), c.Params("table"), id, &req.Reason); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// History lists the pending updates filed against one record.
func (h *RecordHandler) History(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "id", "must be a uuid")
	}
	list, err := h.updates.History(c.UserContext(), middleware.GetCaller(c), c.Params("table"), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewPendingUpdateViews(list)})
}
