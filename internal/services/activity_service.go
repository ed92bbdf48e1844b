package services

import (
	"context"

	"github.com/laundry-desk/backend/internal/auth"
	"github.com/laundry-desk/backend/internal/models"
	"github.com/laundry-desk/backend/internal/rbac"
	"github.com/laundry-desk/backend/internal/repositories"
	"go.uber.org/zap"
)

// ActivityService exposes the business activity history to admins.
type ActivityService struct {
	repo ActivityLogStore
	log  *zap.Logger
}

func NewActivityService(repo ActivityLogStore, log *zap.Logger) *ActivityService {
	return &ActivityService{repo: repo, log: log}
}

func (s *ActivityService) List(ctx context.Context, caller auth.Caller, f repositories.ActivityLogFilter) ([]models.ActivityLog, error) {
	if !caller.Can(rbac.PermViewActivityLog) {
		return nil, forbidden(s.log, caller, "list_activity_logs", "admin role required")
	}
	logs, err := s.repo.List(ctx, caller.BusinessID, f)
	return logs, storeErr(err, "activity log", "list activity logs")
}
