package rbac

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("rbac: assignment not found")
	// ErrUnknownRole indicates a role with no catalog entry arrived from input.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrRoleNotDelegable indicates the actor may not grant the target role.
	ErrRoleNotDelegable = errors.New("rbac: role not delegable by actor")
	// ErrRevokeNotAllowed indicates the actor may not revoke the assignment.
	ErrRevokeNotAllowed = errors.New("rbac: revoke not allowed")
	// ErrInvalidContext indicates a business context whose identifiers do not
	// form a containment chain.
	ErrInvalidContext = errors.New("rbac: invalid business context")
)

// InsufficientPermissionsError reports a failed permission gate. It carries
// the actor and the permission that was required so callers can surface both
// without re-deriving them.
type InsufficientPermissionsError struct {
	UserID     uuid.UUID
	Permission string
}

func (e *InsufficientPermissionsError) Error() string {
	return fmt.Sprintf("rbac: user %s lacks permission %s", e.UserID, e.Permission)
}
