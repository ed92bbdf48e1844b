package services

import (
	"errors"

	"github.com/laundry-desk/backend/internal/apperr"
	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/repositories"
	"go.uber.org/zap"
)

// storeErr translates a store error into the taxonomy. Errors that already
// carry a kind pass through untouched.
func storeErr(err error, what, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return apperr.Internal(op, err)
}

// forbidden logs the attempt as a security event and returns the error.
func forbidden(log *zap.Logger, caller auth.Caller, action, msg string, fields ...zap.Field) error {
	log.Warn("forbidden access attempt", append([]zap.Field{
		zap.String("action", action),
		zap.String("caller_user_id", caller.UserID.String()),
		zap.String("caller_business_id", caller.BusinessID.String()),
		zap.String("caller_role", caller.Role),
	}, fields...)...)
	return apperr.Forbidden(msg)
}
