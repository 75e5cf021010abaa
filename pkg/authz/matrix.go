package authz

import (
	"github.com/google/uuid"

	"github.com/tallyops/stockcount-backend/pkg/enums"
)

// Caller identifies the authenticated actor for a domain operation. It is
// passed explicitly into every service call; nothing reads identity from
// ambient state.
type Caller struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Action enumerates the reconciliation operations gated by role.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

// ownerActions require the caller to be the reconciliation's creator unless
// they are an administrator.
var ownerActions = map[Action]bool{
	ActionEdit:   true,
	ActionSubmit: true,
	ActionDelete: true,
}

// CanAct applies the role/ownership matrix for an existing reconciliation
// owned by ownerID. Administrators may perform every action; managers may
// act only on records they created, and never approve or reject.
func CanAct(caller Caller, action Action, ownerID uuid.UUID) bool {
	switch caller.Role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleManager:
		if action == ActionView {
			return true
		}
		if ownerActions[action] {
			return caller.UserID != uuid.Nil && caller.UserID == ownerID
		}
		return false
	default:
		return false
	}
}

// CanCreate reports whether the caller may create reconciliations.
func CanCreate(caller Caller) bool {
	return caller.Role == enums.UserRoleAdmin || caller.Role == enums.UserRoleManager
}

// CanDecide reports whether the caller may approve or reject pending
// reconciliations.
func CanDecide(caller Caller) bool {
	return caller.Role == enums.UserRoleAdmin
}
