package rbac

// Role constants
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Permission constants
const (
	PermSubmitUpdate       = "submit_update"
	PermViewOwnUpdates     = "view_own_updates"
	PermViewBusinessUpdate = "view_business_updates"
	PermReviewUpdate       = "review_update"
	PermEditDirect         = "edit_direct"
	PermDeleteRecord       = "delete_record"
	PermViewActivityLog    = "view_activity_log"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermViewOwnUpdates, PermViewBusinessUpdate, PermReviewUpdate,
		PermEditDirect, PermDeleteRecord, PermViewActivityLog,
	},
	RoleUser: {
		PermSubmitUpdate, PermViewOwnUpdates,
		// User edits always go through review.
	},
}

func IsValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}
