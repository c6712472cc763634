package shared

// Platform tier permissions.
const (
	PermPlatformManage        = "platform.manage"
	PermPlatformBusinessView  = "platform.businesses.view"
	PermPlatformBusinessAdmin = "platform.businesses.admin"
)

// PlatformScopes lists all permissions related to platform administration.
func PlatformScopes() []string {
	return []string{
		PermPlatformManage,
		PermPlatformBusinessView,
		PermPlatformBusinessAdmin,
	}
}
