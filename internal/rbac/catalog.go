package rbac

import (
	"fmt"
	"sort"

	"github.com/atrium-platform/atrium-platform/internal/shared"
)

type roleSpec struct {
	level       int
	permissions []string
}

// Catalog is the immutable role table: every role maps to a hierarchy level
// and a base permission set. It is built once at startup and injected into
// the resolver and service; it is never mutated afterwards.
type Catalog struct {
	specs   map[Role]roleSpec
	ordered []Role
}

// NewCatalog builds the platform role catalog.
func NewCatalog() *Catalog {
	specs := map[Role]roleSpec{
		RolePlatformAdmin: {level: 1000, permissions: append(shared.PlatformScopes(),
			shared.PermBusinessManage,
			shared.PermStaffManageAll,
			shared.PermStaffPermissionsView,
			shared.PermBusinessAnalyticsView,
		)},
		RoleBusinessOwner: {level: 900, permissions: []string{
			shared.PermBusinessManage,
			shared.PermBusinessSettingsEdit,
			shared.PermBusinessAnalyticsView,
			shared.PermLocationManage,
			shared.PermDepartmentManage,
			shared.PermStaffManageAll,
			shared.PermStaffPermissionsView,
			shared.PermScheduleManage,
			shared.PermClientsView,
		}},
		RoleBusinessAdmin: {level: 800, permissions: []string{
			shared.PermBusinessSettingsEdit,
			shared.PermBusinessAnalyticsView,
			shared.PermLocationManage,
			shared.PermStaffManageAll,
			shared.PermStaffPermissionsView,
			shared.PermScheduleManage,
			shared.PermClientsView,
		}},
		RoleLocationManager: {level: 700, permissions: []string{
			shared.PermLocationManage,
			shared.PermLocationAnalyticsView,
			shared.PermStaffManageLocation,
			shared.PermStaffPermissionsView,
			shared.PermScheduleManage,
			shared.PermClientsView,
		}},
		RoleDepartmentHead: {level: 600, permissions: []string{
			shared.PermDepartmentManage,
			shared.PermStaffManageDepartment,
			shared.PermStaffPermissionsView,
			shared.PermScheduleManage,
			shared.PermClientsView,
		}},
		RoleSeniorPractitioner: {level: 500, permissions: []string{
			shared.PermAppointmentsManage,
			shared.PermScheduleManage,
			shared.PermScheduleViewOwn,
			shared.PermClientsView,
			shared.PermClientRecordsEdit,
		}},
		RolePractitioner: {level: 400, permissions: []string{
			shared.PermAppointmentsManage,
			shared.PermScheduleViewOwn,
			shared.PermClientsView,
			shared.PermClientRecordsEdit,
		}},
		RoleJuniorPractitioner: {level: 300, permissions: []string{
			shared.PermAppointmentsAssist,
			shared.PermScheduleViewOwn,
			shared.PermClientsView,
		}},
		RoleReceptionist: {level: 250, permissions: []string{
			shared.PermAppointmentsAssist,
			shared.PermClientsView,
			shared.PermScheduleViewOwn,
		}},
		RoleScheduler: {level: 200, permissions: []string{
			shared.PermScheduleManage,
			shared.PermScheduleViewOwn,
		}},
		RoleAssistant: {level: 150, permissions: []string{
			shared.PermAppointmentsAssist,
			shared.PermScheduleViewOwn,
		}},
		RoleCorporateClient: {level: 100, permissions: []string{
			shared.PermBookingCreate,
			shared.PermBookingCorporate,
			shared.PermProfileViewOwn,
		}},
		RoleVIPClient: {level: 80, permissions: []string{
			shared.PermBookingCreate,
			shared.PermBookingPriority,
			shared.PermProfileViewOwn,
		}},
		RoleClient: {level: 50, permissions: []string{
			shared.PermBookingCreate,
			shared.PermProfileViewOwn,
		}},
		RoleGuest: {level: 10, permissions: []string{
			shared.PermBookingCreate,
		}},
	}

	ordered := make([]Role, 0, len(specs))
	for role := range specs {
		ordered = append(ordered, role)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return specs[ordered[i]].level > specs[ordered[j]].level
	})

	return &Catalog{specs: specs, ordered: ordered}
}

// Known reports whether the role has a catalog entry.
func (c *Catalog) Known(role Role) bool {
	_, ok := c.specs[role]
	return ok
}

// LevelOf returns the hierarchy level of a role. An unknown role is a
// programming error, not an input condition, so it panics.
func (c *Catalog) LevelOf(role Role) int {
	spec, ok := c.specs[role]
	if !ok {
		panic(fmt.Sprintf("rbac: role %q missing from catalog", role))
	}
	return spec.level
}

// PermissionsOf returns a copy of the base permission set of a role. An
// unknown role panics.
func (c *Catalog) PermissionsOf(role Role) []string {
	spec, ok := c.specs[role]
	if !ok {
		panic(fmt.Sprintf("rbac: role %q missing from catalog", role))
	}
	perms := make([]string, len(spec.permissions))
	copy(perms, spec.permissions)
	return perms
}

// AllRoles returns every role ordered by descending hierarchy level.
func (c *Catalog) AllRoles() []Role {
	roles := make([]Role, len(c.ordered))
	copy(roles, c.ordered)
	return roles
}

// Delegable returns the roles strictly below the given level, descending.
// Equality is exclusive so a role can never delegate laterally.
func (c *Catalog) Delegable(level int) []Role {
	var roles []Role
	for _, role := range c.ordered {
		if c.specs[role].level < level {
			roles = append(roles, role)
		}
	}
	return roles
}

// TopLevel returns the highest hierarchy level in the catalog.
func (c *Catalog) TopLevel() int {
	if len(c.ordered) == 0 {
		return 0
	}
	return c.specs[c.ordered[0]].level
}
