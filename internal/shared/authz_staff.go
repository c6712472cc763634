package shared

// Staff tier permissions.
const (
	PermStaffManageAll        = "staff.manage.all"
	PermStaffManageLocation   = "staff.manage.location"
	PermStaffManageDepartment = "staff.manage.department"

	// PermStaffPermissionsView gates reading another user's effective
	// permissions within a business context.
	PermStaffPermissionsView = "staff.permissions.view"

	PermScheduleManage  = "schedule.manage"
	PermScheduleViewOwn = "schedule.view.own"

	PermAppointmentsManage = "appointments.manage"
	PermAppointmentsAssist = "appointments.assist"

	PermClientsView       = "clients.view"
	PermClientRecordsEdit = "clients.records.edit"
)

// StaffScopes lists all permissions related to staff operations.
func StaffScopes() []string {
	return []string{
		PermStaffManageAll,
		PermStaffManageLocation,
		PermStaffManageDepartment,
		PermStaffPermissionsView,
		PermScheduleManage,
		PermScheduleViewOwn,
		PermAppointmentsManage,
		PermAppointmentsAssist,
		PermClientsView,
		PermClientRecordsEdit,
	}
}
