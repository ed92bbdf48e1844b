package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/middleware"
	"go.uber.org/zap"
)

// respondError maps service errors onto status codes. Internal details are
// logged, never returned.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	resp := dto.ErrorResponse{RequestID: middleware.RequestID(c)}

	var fe *dto.FieldError
	if errors.As(err, &fe) {
		resp.Error = fe.Error()
		resp.Kind = string(apperr.KindValidation)
		resp.Field = fe.Field
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}

	status := apperr.HTTPStatus(err)
	e, ok := apperr.As(err)
	if !ok || status == fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", resp.RequestID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		resp.Error = "internal error"
		if ok {
			resp.Kind = string(e.Kind)
			if e.Kind == apperr.KindApply {
				resp.Error = e.Message
			}
		}
		return c.Status(status).JSON(resp)
	}

	resp.Error = e.Error()
	resp.Kind = string(e.Kind)
	resp.Field = e.Field
	resp.CurrentStatus = e.CurrentStatus
	return c.Status(status).JSON(resp)
}

func badRequest(c *fiber.Ctx, field, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:     field + ": " + msg,
		Kind:      string(apperr.KindValidation),
		Field:     field,
		RequestID: middleware.RequestID(c),
	})
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func optUUIDQuery(c *fiber.Ctx, name string) (*uuid.UUID, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func optStringQuery(c *fiber.Ctx, name string) *string {
	if v := c.Query(name); v != "" {
		return &v
	}
	return nil
}

func intQuery(c *fiber.Ctx, name string) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
