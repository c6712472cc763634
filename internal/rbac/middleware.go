package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/atrium-platform/atrium-platform/internal/observability"
	"github.com/atrium-platform/atrium-platform/internal/shared"
)

// Middleware wires permission gates for HTTP handlers. The business context
// is read from the request's query coordinates and the actor from the
// request context populated by the identity middleware.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Require ensures the current actor holds the permission within the
// requested business context.
func (m Middleware) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, ok := shared.ActorFromContext(r.Context())
			if !ok {
				m.observe(false)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			rc, err := contextFromQuery(r)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			if err := m.Service.RequirePermission(r.Context(), actorID, permission, rc); err != nil {
				var denied *InsufficientPermissionsError
				if errors.As(err, &denied) {
					m.observe(false)
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
				if m.Logger != nil {
					m.Logger.Error("rbac require", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			m.observe(true)
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) observe(allowed bool) {
	if m.Metrics != nil {
		m.Metrics.ObserveAuthzDecision(allowed)
	}
}
