package shared

// Business management tier permissions.
const (
	PermBusinessManage        = "business.manage"
	PermBusinessSettingsEdit  = "business.settings.edit"
	PermBusinessAnalyticsView = "analytics.business.view"

	PermLocationManage        = "location.manage"
	PermLocationAnalyticsView = "analytics.location.view"

	PermDepartmentManage = "department.manage"
)

// BusinessScopes lists all permissions related to business management.
func BusinessScopes() []string {
	return []string{
		PermBusinessManage,
		PermBusinessSettingsEdit,
		PermBusinessAnalyticsView,
		PermLocationManage,
		PermLocationAnalyticsView,
		PermDepartmentManage,
	}
}
