package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies an authority tier with a fixed hierarchy level and base
// permission set. Only the catalog entry matters to the engine; the name is
// a label.
type Role string

// Platform tier.
const (
	RolePlatformAdmin Role = "PLATFORM_ADMIN"
)

// Business management tier.
const (
	RoleBusinessOwner   Role = "BUSINESS_OWNER"
	RoleBusinessAdmin   Role = "BUSINESS_ADMIN"
	RoleLocationManager Role = "LOCATION_MANAGER"
	RoleDepartmentHead  Role = "DEPARTMENT_HEAD"
)

// Staff tier.
const (
	RoleSeniorPractitioner Role = "SENIOR_PRACTITIONER"
	RolePractitioner       Role = "PRACTITIONER"
	RoleJuniorPractitioner Role = "JUNIOR_PRACTITIONER"
	RoleReceptionist       Role = "RECEPTIONIST"
	RoleScheduler          Role = "SCHEDULER"
	RoleAssistant          Role = "ASSISTANT"
)

// Client tier.
const (
	RoleCorporateClient Role = "CORPORATE_CLIENT"
	RoleVIPClient       Role = "VIP_CLIENT"
	RoleClient          Role = "CLIENT"
	RoleGuest           Role = "GUEST"
)

// Scope is the granularity at which a role assignment applies.
type Scope string

const (
	ScopeBusiness   Scope = "BUSINESS"
	ScopeLocation   Scope = "LOCATION"
	ScopeDepartment Scope = "DEPARTMENT"
)

// Assignment sources.
const (
	SourceDirect = "DIRECT"
	SourceImport = "IMPORT"
	SourceSystem = "SYSTEM"
)

// BusinessContext is the business/location/department coordinate a request
// is evaluated against. LocationID and DepartmentID narrow the context; a
// DepartmentID without a LocationID is invalid.
type BusinessContext struct {
	BusinessID   uuid.UUID  `json:"business_id"`
	LocationID   *uuid.UUID `json:"location_id,omitempty"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
}

// Scope reports the granularity of the context.
func (c BusinessContext) Scope() Scope {
	switch {
	case c.DepartmentID != nil:
		return ScopeDepartment
	case c.LocationID != nil:
		return ScopeLocation
	default:
		return ScopeBusiness
	}
}

// Valid reports whether the populated identifiers form a containment chain.
func (c BusinessContext) Valid() bool {
	if c.BusinessID == uuid.Nil {
		return false
	}
	if c.DepartmentID != nil && c.LocationID == nil {
		return false
	}
	return true
}

// RoleAssignment is a scoped, time-bound grant of a role to a user. It is a
// plain record; activity and applicability are derived by the predicates
// below, never stored.
type RoleAssignment struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Role          Role       `json:"role"`
	BusinessID    uuid.UUID  `json:"business_id"`
	LocationID    *uuid.UUID `json:"location_id,omitempty"`
	DepartmentID  *uuid.UUID `json:"department_id,omitempty"`
	AssignedAt    time.Time  `json:"assigned_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Active        bool       `json:"active"`
	AssignedBy    uuid.UUID  `json:"assigned_by"`
	PriorityLevel int        `json:"priority_level"`
	Source        string     `json:"source"`
	Version       int64      `json:"version"`
}

// Scope is derived from which identifiers are populated; it is never stored
// separately so it cannot contradict them.
func (a RoleAssignment) Scope() Scope {
	switch {
	case a.DepartmentID != nil:
		return ScopeDepartment
	case a.LocationID != nil:
		return ScopeLocation
	default:
		return ScopeBusiness
	}
}

// Context returns the assignment's own coordinates as a BusinessContext.
func (a RoleAssignment) Context() BusinessContext {
	return BusinessContext{
		BusinessID:   a.BusinessID,
		LocationID:   a.LocationID,
		DepartmentID: a.DepartmentID,
	}
}

// ActiveAt reports whether the assignment is active at the given instant.
// Expiry is computed at read time; revocation flips Active.
func (a RoleAssignment) ActiveAt(now time.Time) bool {
	if !a.Active {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return true
}

// AppliesTo reports whether the assignment's scope contains the request
// context. A BUSINESS assignment matches anything within its business; a
// LOCATION assignment requires the same location and ignores the request's
// department; a DEPARTMENT assignment requires an identical coordinate.
func (a RoleAssignment) AppliesTo(rc BusinessContext) bool {
	if a.BusinessID != rc.BusinessID {
		return false
	}
	if a.LocationID == nil {
		return true
	}
	if rc.LocationID == nil || *rc.LocationID != *a.LocationID {
		return false
	}
	if a.DepartmentID == nil {
		return true
	}
	return rc.DepartmentID != nil && *rc.DepartmentID == *a.DepartmentID
}

// AssignedRole is the per-assignment view carried in an effective
// permissions result.
type AssignedRole struct {
	Role       Role       `json:"role"`
	Scope      Scope      `json:"scope"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	AssignedBy uuid.UUID  `json:"assigned_by"`
}

// EffectivePermissions is the derived view of what a user may do in a
// context. It is produced fresh on every resolution and never persisted.
type EffectivePermissions struct {
	UserID         uuid.UUID       `json:"user_id"`
	Context        BusinessContext `json:"context"`
	Permissions    []string        `json:"effective_permissions"`
	AssignedRoles  []AssignedRole  `json:"assigned_roles"`
	HierarchyLevel int             `json:"hierarchy_level"`
	CanAssignRoles []Role          `json:"can_assign_roles"`
}

// Has reports whether the permission is granted.
func (e EffectivePermissions) Has(permission string) bool {
	for _, p := range e.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
