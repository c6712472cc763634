package rbac

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Resolve computes the permissions that actually apply for a user's
// assignments in a request context. It is pure: the only clock is the
// injected now, and it touches no storage, so it is safe to call from any
// number of goroutines.
//
// Assignments that are inactive, expired, or out of scope are dropped
// entirely; they never appear in the result, not even flagged. An empty
// applicable set is a normal outcome and yields the zero-permission result.
func Resolve(catalog *Catalog, userID uuid.UUID, assignments []RoleAssignment, rc BusinessContext, now time.Time) EffectivePermissions {
	result := EffectivePermissions{
		UserID:         userID,
		Context:        rc,
		Permissions:    []string{},
		AssignedRoles:  []AssignedRole{},
		CanAssignRoles: []Role{},
	}

	permSet := make(map[string]struct{})
	for _, a := range assignments {
		if !a.ActiveAt(now) || !a.AppliesTo(rc) {
			continue
		}
		result.AssignedRoles = append(result.AssignedRoles, AssignedRole{
			Role:       a.Role,
			Scope:      a.Scope(),
			AssignedAt: a.AssignedAt,
			ExpiresAt:  a.ExpiresAt,
			AssignedBy: a.AssignedBy,
		})
		for _, p := range catalog.PermissionsOf(a.Role) {
			permSet[p] = struct{}{}
		}
		if level := catalog.LevelOf(a.Role); level > result.HierarchyLevel {
			result.HierarchyLevel = level
		}
	}

	if len(result.AssignedRoles) == 0 {
		return result
	}

	result.Permissions = make([]string, 0, len(permSet))
	for p := range permSet {
		result.Permissions = append(result.Permissions, p)
	}
	sort.Strings(result.Permissions)

	result.CanAssignRoles = catalog.Delegable(result.HierarchyLevel)
	if result.CanAssignRoles == nil {
		result.CanAssignRoles = []Role{}
	}
	return result
}
