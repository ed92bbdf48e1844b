package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/middleware"
	"github.com/laundry-desk/backend/internal/repositories"
	"github.com/laundry-desk/backend/internal/services"
	"go.uber.org/zap"
)

type PendingUpdateHandler struct {
	updates   *services.PendingUpdateService
	approvals *services.ApprovalService
	log       *zap.Logger
}

func NewPendingUpdateHandler(updates *services.PendingUpdateService, approvals *services.ApprovalService, log *zap.Logger) *PendingUpdateHandler {
	return &PendingUpdateHandler{updates: updates, approvals: approvals, log: log}
}

func (h *PendingUpdateHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitPendingUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return respondError(c, h.log, err)
	}
	recordID, err := uuid.Parse(req.RecordID)
	if err != nil {
		return badRequest(c, "record_id", "must be a uuid")
	}

	p, err := h.updates.Submit(c.UserContext(), middleware.GetCaller(c), services.SubmitInput{
		TableName: req.TableName,
		RecordID:  recordID,
		OldValues: req.OldValues,
		NewValues: req.NewValues,
		Reason:    req.Reason,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.NewPendingUpdateView(p)})
}

func (h *PendingUpdateHandler) List(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)

	businessID := caller.BusinessID
	if v, ok := optUUIDQuery(c, "business_id"); !ok {
		return badRequest(c, "business_id", "must be a uuid")
	} else if v != nil {
		businessID = *v
	}
	submitter, ok := optUUIDQuery(c, "submitter_id")
	if !ok {
		return badRequest(c, "submitter_id", "must be a uuid")
	}
	recordID, ok := optUUIDQuery(c, "record_id")
	if !ok {
		return badRequest(c, "record_id", "must be a uuid")
	}

	list, err := h.updates.ListForBusiness(c.UserContext(), caller, businessID, repositories.PendingUpdateFilter{
		Status:      optStringQuery(c, "status"),
		SubmitterID: submitter,
		TableName:   optStringQuery(c, "table_name"),
		RecordID:    recordID,
		Limit:       intQuery(c, "limit"),
		Offset:      intQuery(c, "offset"),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewPendingUpdateViews(list)})
}

func (h *PendingUpdateHandler) Count(c *fiber.Ctx) error {
	n, err := h.updates.PendingCount(c.UserContext(), middleware.GetCaller(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.CountResponse{Count: n}})
}

func (h *PendingUpdateHandler) Get(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "id", "must be a uuid")
	}
	p, err := h.updates.Get(c.UserContext(), middleware.GetCaller(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewPendingUpdateView(p)})
}

func (h *PendingUpdateHandler) Decide(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "id", "must be a uuid")
	}
	var req dto.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return respondError(c, h.log, err)
	}

	p, err := h.approvals.Decide(c.UserContext(), middleware.GetCaller(c), id, req.Decision, req.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewPendingUpdateView(p)})
}
