package authz

import (
	"crypto/subtle"

	"dashboard-service/internal/model"
)

// AdminLevel is the explicit three-value form of the nullable membership
// admin flag. Historical rows carry NULL, which counts as admin for category
// actions; only an explicit false disqualifies.
type AdminLevel int

const (
	// AdminUnset is the historical NULL value, treated as admin for category actions.
	AdminUnset AdminLevel = iota
	// AdminDenied is an explicit false, the only disqualifying value.
	AdminDenied
	// AdminGranted is an explicit true.
	AdminGranted
)

// AdminLevelOf converts the stored nullable flag into an AdminLevel
func AdminLevelOf(isAdmin *bool) AdminLevel {
	switch {
	case isAdmin == nil:
		return AdminUnset
	case *isAdmin:
		return AdminGranted
	default:
		return AdminDenied
	}
}

// Action identifies a protected tenant-scoped operation
type Action int

const (
	ActionViewTasks Action = iota
	ActionViewResources
	ActionViewPrompts
	ActionCreateTask
	ActionCreateResource
	ActionCreatePrompt
	ActionCreateCategory
	ActionEditCategory
	ActionDeleteCategory
	ActionUpdateMemberRole
)

// Authorize answers whether the membership permits the action. Every check
// fails closed: an action outside the catalog is denied.
func Authorize(m *model.Membership, action Action) error {
	if m == nil {
		return ErrNotAMember
	}

	switch action {
	case ActionViewTasks, ActionViewResources, ActionViewPrompts,
		ActionCreateTask, ActionCreateResource, ActionCreatePrompt,
		ActionCreateCategory:
		// Any role suffices; holding the membership row is the check.
		return nil

	case ActionEditCategory, ActionDeleteCategory:
		if m.IsOwner {
			return nil
		}
		if AdminLevelOf(m.IsAdmin) == AdminDenied {
			return ErrAdminRevoked
		}
		return nil

	case ActionUpdateMemberRole:
		if !m.IsOwner {
			return ErrOwnerRequired
		}
		return nil

	default:
		return ErrUnknownAction
	}
}

// RequireCreator enforces creator-id equality for creator-gated items
// (email prompts), independent of tenant role.
func RequireCreator(creatorID, callerID uint) error {
	if creatorID != callerID {
		return ErrCreatorOnly
	}
	return nil
}

// RequireGlobalAdmin gates platform-wide user management actions on the
// profile-level admin flag, which is unrelated to any tenant membership.
func RequireGlobalAdmin(caller Caller) error {
	if !caller.IsAdmin {
		return ErrGlobalAdminRequired
	}
	return nil
}

// CanDeleteTenant checks the full tenant-deletion guard: the caller must own
// the tenant, confirm its exact name and PIN, and own at least one other
// tenant so they are never left with zero.
func CanDeleteTenant(m *model.Membership, tenant *model.Tenant, confirmName, confirmPIN string, ownedCount int64) error {
	if m == nil || !m.IsOwner {
		return ErrOwnerRequired
	}
	if confirmName != tenant.Name {
		return ErrNameMismatch
	}
	if subtle.ConstantTimeCompare([]byte(confirmPIN), []byte(tenant.PIN)) != 1 {
		return ErrPINMismatch
	}
	if ownedCount < 2 {
		return ErrLastTenant
	}
	return nil
}

// CheckDeletePIN validates the shared confirmation PIN used for resource and
// task deletion. This is a soft confirmation gate distinct from the tenant
// PIN, not a cryptographic control.
func CheckDeletePIN(got, configured string) error {
	if subtle.ConstantTimeCompare([]byte(got), []byte(configured)) != 1 {
		return ErrPINMismatch
	}
	return nil
}

// VisibleTasks applies the assignee-visibility filter to a task listing.
// An empty grant list means no restriction has been configured yet and all
// tenant tasks are visible; global admins are never restricted.
func VisibleTasks(tasks []model.Task, grantedAssignees []string, isGlobalAdmin bool) []model.Task {
	if isGlobalAdmin || len(grantedAssignees) == 0 {
		return tasks
	}

	granted := make(map[string]struct{}, len(grantedAssignees))
	for _, a := range grantedAssignees {
		granted[a] = struct{}{}
	}

	visible := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := granted[t.Assignee]; ok {
			visible = append(visible, t)
		}
	}
	return visible
}
