package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrMissingActor occurs when a request carries no acting user identity.
	ErrMissingActor = errors.New("acting user missing")
)

// UserSafeMessage maps internal errors to a message safe for API clients.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrMissingActor):
		return "The request is missing an acting user identity."
	default:
		return "Something went wrong. Please try again."
	}
}
