package rbac

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atrium-platform/atrium-platform/internal/shared"
)

// UpdateResult is the outcome of an optimistic-concurrency update. A stale
// version is a value, not an error, so callers can re-read and retry.
type UpdateResult int

const (
	UpdateApplied UpdateResult = iota
	UpdateConflict
	UpdateNotFound
)

// GrantStore adds the mutation operations on top of assignment reads.
// Deactivate must apply only when the stored version matches, incrementing
// it on success.
type GrantStore interface {
	AssignmentStore
	Insert(ctx context.Context, assignment RoleAssignment) error
	FindByID(ctx context.Context, id uuid.UUID) (RoleAssignment, error)
	Deactivate(ctx context.Context, id uuid.UUID, version int64) (UpdateResult, error)
}

// AuditRecorder persists grant/revoke audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached assignment snapshots after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// GrantRequest describes a role grant to apply.
type GrantRequest struct {
	UserID        uuid.UUID
	Role          Role
	Context       BusinessContext
	ExpiresAt     *time.Time
	PriorityLevel int
	Source        string
}

// Grants applies role grant and revoke mutations under the delegation rules
// enforced by the authorization façade. Assignments are soft-revoked, never
// deleted, so the audit trail stays complete.
type Grants struct {
	catalog    *Catalog
	authorizer *Service
	store      GrantStore
	audit      AuditRecorder
	cache      Invalidator
	logger     *slog.Logger
	now        func() time.Time
}

// NewGrants constructs the grant service. audit and cache may be nil.
func NewGrants(catalog *Catalog, authorizer *Service, store GrantStore, audit AuditRecorder, cache Invalidator, logger *slog.Logger) *Grants {
	return &Grants{
		catalog:    catalog,
		authorizer: authorizer,
		store:      store,
		audit:      audit,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Grant assigns a role to a user in a context. The actor must be able to
// delegate the role there, i.e. the role sits strictly below the actor's own
// hierarchy level.
func (g *Grants) Grant(ctx context.Context, actorID uuid.UUID, req GrantRequest) (RoleAssignment, error) {
	if !req.Context.Valid() {
		return RoleAssignment{}, ErrInvalidContext
	}
	if !g.catalog.Known(req.Role) {
		return RoleAssignment{}, ErrUnknownRole
	}
	ok, err := g.authorizer.CanActOnRole(ctx, actorID, req.Role, req.Context)
	if err != nil {
		return RoleAssignment{}, err
	}
	if !ok {
		return RoleAssignment{}, ErrRoleNotDelegable
	}

	source := req.Source
	if source == "" {
		source = SourceDirect
	}
	assignment := RoleAssignment{
		ID:            uuid.New(),
		UserID:        req.UserID,
		Role:          req.Role,
		BusinessID:    req.Context.BusinessID,
		LocationID:    req.Context.LocationID,
		DepartmentID:  req.Context.DepartmentID,
		AssignedAt:    g.now(),
		ExpiresAt:     req.ExpiresAt,
		Active:        true,
		AssignedBy:    actorID,
		PriorityLevel: req.PriorityLevel,
		Source:        source,
		Version:       1,
	}
	if err := g.store.Insert(ctx, assignment); err != nil {
		g.logger.Error("insert role assignment",
			slog.String("user_id", req.UserID.String()),
			slog.String("correlation_id", shared.CorrelationIDFromContext(ctx)),
			slog.Any("error", err))
		return RoleAssignment{}, err
	}
	g.recordAudit(ctx, actorID, "rbac.grant", assignment)
	g.invalidate(ctx)
	return assignment, nil
}

// Revoke deactivates an assignment. The actor must outrank the assignment's
// role in the assignment's own context, or be revoking their own
// non-top-tier assignment. A stale version yields UpdateConflict.
func (g *Grants) Revoke(ctx context.Context, actorID, assignmentID uuid.UUID, version int64) (UpdateResult, error) {
	assignment, err := g.store.FindByID(ctx, assignmentID)
	if err != nil {
		return UpdateNotFound, err
	}
	allowed, err := g.canRevoke(ctx, actorID, assignment)
	if err != nil {
		return UpdateNotFound, err
	}
	if !allowed {
		return UpdateNotFound, ErrRevokeNotAllowed
	}

	outcome, err := g.store.Deactivate(ctx, assignmentID, version)
	if err != nil {
		g.logger.Error("deactivate role assignment",
			slog.String("assignment_id", assignmentID.String()),
			slog.String("correlation_id", shared.CorrelationIDFromContext(ctx)),
			slog.Any("error", err))
		return outcome, err
	}
	if outcome == UpdateApplied {
		g.recordAudit(ctx, actorID, "rbac.revoke", assignment)
		g.invalidate(ctx)
	}
	return outcome, nil
}

func (g *Grants) canRevoke(ctx context.Context, actorID uuid.UUID, assignment RoleAssignment) (bool, error) {
	targetLevel := g.catalog.LevelOf(assignment.Role)
	if assignment.UserID == actorID {
		return targetLevel < g.catalog.TopLevel(), nil
	}
	result, err := g.authorizer.EffectivePermissions(ctx, actorID, assignment.Context())
	if err != nil {
		return false, err
	}
	return result.HierarchyLevel > targetLevel, nil
}

func (g *Grants) recordAudit(ctx context.Context, actorID uuid.UUID, action string, assignment RoleAssignment) {
	if g.audit == nil {
		return
	}
	err := g.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role_assignment",
		EntityID: assignment.ID.String(),
		Meta: map[string]any{
			"user_id":     assignment.UserID.String(),
			"role":        string(assignment.Role),
			"scope":       string(assignment.Scope()),
			"business_id": assignment.BusinessID.String(),
		},
		At: g.now(),
	})
	if err != nil {
		g.logger.Warn("audit record", slog.Any("error", err))
	}
}

func (g *Grants) invalidate(ctx context.Context) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Bump(ctx); err != nil {
		g.logger.Warn("assignment cache bump", slog.Any("error", err))
	}
}
