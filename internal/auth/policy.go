// Package auth covers caller identity: token issuing and verification,
// password hashing, and the role-capability policy every resource component
// consults before acting.
package auth

import "finledger/internal/core"

type (
	Resource string

	Action string

	// Identity is the resolved caller attached to a request after token
	// verification. Role and name come from the user directory, not the
	// token, so role changes take effect immediately.
	Identity struct {
		ID    int64     `json:"id"`
		Name  string    `json:"name"`
		Email string    `json:"email"`
		Role  core.Role `json:"role"`
	}
)

const (
	ResourceTransaction Resource = "transaction"
	ResourceCategory    Resource = "category"
	ResourceUser        Resource = "user"
	ResourceAnalytics   Resource = "analytics"
)

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// IsAdmin reports whether the identity carries the admin role.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == core.RoleAdmin
}

// CanAct is the single source of truth for the role-capability mapping.
// ownerID is the owning user of the target record where ownership applies;
// pass the caller's own id for ownerless resources.
//
//   - admin may perform any action on any resource
//   - user may create/read/update/delete transactions they own, read
//     categories and their own analytics, and nothing else
//   - read-only may read own transactions, categories, and own analytics
//   - a nil identity is denied everything
func CanAct(identity *Identity, resource Resource, action Action, ownerID int64) bool {
	if identity == nil {
		return false
	}
	if identity.Role == core.RoleAdmin {
		return true
	}

	switch resource {
	case ResourceTransaction:
		if identity.ID != ownerID {
			return false
		}
		if action == ActionRead {
			return true
		}
		return identity.Role == core.RoleUser

	case ResourceCategory:
		return action == ActionRead

	case ResourceAnalytics:
		return action == ActionRead && identity.ID == ownerID

	case ResourceUser:
		// Listing, role updates, and deletion are admin-only.
		return false

	default:
		return false
	}
}
