package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atrium-platform/atrium-platform/internal/platform/httpx"
	"github.com/atrium-platform/atrium-platform/internal/shared"
)

// Handler exposes the authorization engine over HTTP. Authentication lives
// upstream; the gateway forwards the acting user in X-User-ID.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	grants   *Grants
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, grants *Grants) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		grants:   grants,
		validate: validator.New(),
	}
}

// MountRoutes registers rbac routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.listRoles)
	r.Get("/users/{userID}/permissions", h.getEffectivePermissions)
	r.Post("/grants", h.createGrant)
	r.Post("/grants/{grantID}/revoke", h.revokeGrant)
}

type roleView struct {
	Role        Role     `json:"role"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	catalog := h.service.Catalog()
	roles := catalog.AllRoles()
	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, roleView{
			Role:        role,
			Level:       catalog.LevelOf(role),
			Permissions: catalog.PermissionsOf(role),
		})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) getEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ErrMissingActor.Error())
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	rc, err := contextFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.GetEffectivePermissions(r.Context(), actorID, targetID, rc, shared.CorrelationIDFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type grantRequest struct {
	UserID        string     `json:"user_id" validate:"required,uuid4_rfc4122|uuid_rfc4122"`
	Role          string     `json:"role" validate:"required"`
	BusinessID    string     `json:"business_id" validate:"required,uuid4_rfc4122|uuid_rfc4122"`
	LocationID    *string    `json:"location_id,omitempty" validate:"omitempty,uuid4_rfc4122|uuid_rfc4122"`
	DepartmentID  *string    `json:"department_id,omitempty" validate:"omitempty,uuid4_rfc4122|uuid_rfc4122"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	PriorityLevel int        `json:"priority_level" validate:"gte=0"`
	Source        string     `json:"source" validate:"omitempty,oneof=DIRECT IMPORT SYSTEM"`
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ErrMissingActor.Error())
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rc, err := contextFromStrings(req.BusinessID, req.LocationID, req.DepartmentID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	assignment, err := h.grants.Grant(r.Context(), actorID, GrantRequest{
		UserID:        userID,
		Role:          Role(req.Role),
		Context:       rc,
		ExpiresAt:     req.ExpiresAt,
		PriorityLevel: req.PriorityLevel,
		Source:        req.Source,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, assignment)
}

type revokeRequest struct {
	Version int64 `json:"version" validate:"gte=1"`
}

func (h *Handler) revokeGrant(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ErrMissingActor.Error())
		return
	}
	grantID, err := uuid.Parse(chi.URLParam(r, "grantID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid grant id")
		return
	}
	var req revokeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	outcome, err := h.grants.Revoke(r.Context(), actorID, grantID, req.Version)
	if err != nil {
		h.respondError(w, err)
		return
	}
	switch outcome {
	case UpdateApplied:
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
	case UpdateConflict:
		httpx.Problem(w, http.StatusConflict, "Version Conflict", "assignment was modified concurrently, re-read and retry")
	default:
		httpx.Problem(w, http.StatusNotFound, "Not Found", "assignment not found")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var denied *InsufficientPermissionsError
	switch {
	case errors.As(err, &denied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", denied.Error())
	case errors.Is(err, ErrRoleNotDelegable), errors.Is(err, ErrRevokeNotAllowed):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrInvalidContext):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAssignmentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateAssignment):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("rbac handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}

func contextFromQuery(r *http.Request) (BusinessContext, error) {
	q := r.URL.Query()
	var location, department *string
	if v := q.Get("location_id"); v != "" {
		location = &v
	}
	if v := q.Get("department_id"); v != "" {
		department = &v
	}
	return contextFromStrings(q.Get("business_id"), location, department)
}

func contextFromStrings(business string, location, department *string) (BusinessContext, error) {
	businessID, err := uuid.Parse(business)
	if err != nil {
		return BusinessContext{}, ErrInvalidContext
	}
	rc := BusinessContext{BusinessID: businessID}
	if location != nil {
		id, err := uuid.Parse(*location)
		if err != nil {
			return BusinessContext{}, ErrInvalidContext
		}
		rc.LocationID = &id
	}
	if department != nil {
		id, err := uuid.Parse(*department)
		if err != nil {
			return BusinessContext{}, ErrInvalidContext
		}
		rc.DepartmentID = &id
	}
	if !rc.Valid() {
		return BusinessContext{}, ErrInvalidContext
	}
	return rc, nil
}
