package services

import (
	"fmt"

	"github.com/laundry-desk/backend/internal/models"
)

func newRequestTitle(table string) string {
	return fmt.Sprintf("New %s update request", table)
}

func newRequestMessage(requester, table string) string {
	return fmt.Sprintf("%s has requested changes to a %s record. Please review and approve or reject.", requester, table)
}

// decisionMessage returns the submitter-facing title and message for a decided status.
func decisionMessage(status, table string, reason *string) (title, message string) {
	suffix := ""
	if reason != nil && *reason != "" {
		suffix = " Reason: " + *reason
	}
	switch status {
	case models.PendingStatusApproved:
		return "Update request approved",
			fmt.Sprintf("Your %s update request has been approved and applied.", table)
	case models.PendingStatusRejected:
		return "Update request rejected",
			fmt.Sprintf("Your %s update request has been rejected.%s", table, suffix)
	default:
		return "Update request needs review",
			fmt.Sprintf("Your %s update request has been sent back for review.%s", table, suffix)
	}
}
