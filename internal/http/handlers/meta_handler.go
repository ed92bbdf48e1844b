package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/laundry-desk/backend/internal/models"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaTable struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

type MetaEnums struct {
	PaymentStatuses   []string `json:"payment_statuses"`
	PaymentMethods    []string `json:"payment_methods"`
	Decisions         []string `json:"decisions"`
	PendingStatuses   []string `json:"pending_statuses"`
	NotificationTypes []string `json:"notification_types"`
}

var reviewableTables = []MetaTable{
	{Name: models.TableServices, Fields: models.EditableFields[models.TableServices]},
	{Name: models.TableExpenses, Fields: models.EditableFields[models.TableExpenses]},
	{Name: models.TableProfiles, Fields: models.EditableFields[models.TableProfiles]},
}

var enums = MetaEnums{
	PaymentStatuses: []string{
		models.PaymentStatusNotPaid, models.PaymentStatusPartiallyPaid, models.PaymentStatusFullyPaid,
	},
	PaymentMethods: []string{
		models.PaymentMethodCash, models.PaymentMethodMpesa, models.PaymentMethodBankCheque, models.PaymentMethodCredit,
	},
	Decisions: []string{models.DecisionApprove, models.DecisionReject, models.DecisionSendBack},
	PendingStatuses: []string{
		models.PendingStatusPending, models.PendingStatusApproved,
		models.PendingStatusRejected, models.PendingStatusSentBackForReview,
	},
	NotificationTypes: []string{
		models.NotificationNewUpdateRequest, models.NotificationUpdateApproved,
		models.NotificationUpdateRejected, models.NotificationUpdateSentBack,
	},
}

// GetTables lists the reviewable tables with the field set a snapshot must carry.
func (h *MetaHandler) GetTables(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: reviewableTables})
}

func (h *MetaHandler) GetEnums(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: enums})
}
