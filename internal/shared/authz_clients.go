package shared

// Client tier permissions.
const (
	PermBookingCreate    = "booking.create"
	PermBookingPriority  = "booking.priority"
	PermBookingCorporate = "booking.corporate"
	PermProfileViewOwn   = "profile.view.own"
)

// ClientScopes lists all permissions available to client accounts.
func ClientScopes() []string {
	return []string{
		PermBookingCreate,
		PermBookingPriority,
		PermBookingCorporate,
		PermProfileViewOwn,
	}
}
