package rbac

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atrium-platform/atrium-platform/internal/shared"
)

// AssignmentStore loads a user's full assignment list. It returns every
// assignment regardless of active/expired/context status; filtering is the
// resolver's job, not the store's.
type AssignmentStore interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]RoleAssignment, error)
}

// Service is the authorization façade used by every other use case to ask
// "may actor X do Y here". It loads assignments, runs the resolver, and owns
// the self-access rule for effective-permission queries.
type Service struct {
	catalog *Catalog
	store   AssignmentStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a Service over the given catalog and store.
func NewService(catalog *Catalog, store AssignmentStore, logger *slog.Logger) *Service {
	return &Service{catalog: catalog, store: store, logger: logger, now: time.Now}
}

// Catalog exposes the injected role catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// EffectivePermissions loads the user's assignments and resolves them
// against the context. Storage errors are logged then returned unchanged so
// callers see the original error type.
func (s *Service) EffectivePermissions(ctx context.Context, userID uuid.UUID, rc BusinessContext) (EffectivePermissions, error) {
	assignments, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("load role assignments",
			slog.String("user_id", userID.String()),
			slog.String("correlation_id", shared.CorrelationIDFromContext(ctx)),
			slog.Any("error", err))
		return EffectivePermissions{}, err
	}
	result := Resolve(s.catalog, userID, assignments, rc, s.now())
	if len(result.AssignedRoles) == 0 {
		s.logger.Warn("no applicable role assignments",
			slog.String("user_id", userID.String()),
			slog.String("business_id", rc.BusinessID.String()),
			slog.String("correlation_id", shared.CorrelationIDFromContext(ctx)))
	}
	return result, nil
}

// HasPermission reports whether the user holds the permission in the context.
func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, permission string, rc BusinessContext) (bool, error) {
	result, err := s.EffectivePermissions(ctx, userID, rc)
	if err != nil {
		return false, err
	}
	return result.Has(permission), nil
}

// RequirePermission fails with InsufficientPermissionsError when the user
// does not hold the permission. Intended for operation-gating points.
func (s *Service) RequirePermission(ctx context.Context, userID uuid.UUID, permission string, rc BusinessContext) error {
	ok, err := s.HasPermission(ctx, userID, permission, rc)
	if err != nil {
		return err
	}
	if !ok {
		return &InsufficientPermissionsError{UserID: userID, Permission: permission}
	}
	return nil
}

// CanActOnRole reports whether the actor may grant or revoke the target role
// in the context, i.e. whether the role sits strictly below the actor's own
// hierarchy level.
func (s *Service) CanActOnRole(ctx context.Context, actorID uuid.UUID, target Role, rc BusinessContext) (bool, error) {
	result, err := s.EffectivePermissions(ctx, actorID, rc)
	if err != nil {
		return false, err
	}
	for _, role := range result.CanAssignRoles {
		if role == target {
			return true, nil
		}
	}
	return false, nil
}

// UserRole returns the role of the applicable assignment with the highest
// hierarchy level. Ties are broken by the earliest AssignedAt so the answer
// is deterministic. The second return is false when no assignment applies.
func (s *Service) UserRole(ctx context.Context, userID uuid.UUID, rc BusinessContext) (Role, bool, error) {
	assignments, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("load role assignments",
			slog.String("user_id", userID.String()),
			slog.String("correlation_id", shared.CorrelationIDFromContext(ctx)),
			slog.Any("error", err))
		return "", false, err
	}
	now := s.now()
	var (
		best      Role
		bestLevel = -1
		bestAt    time.Time
		found     bool
	)
	for _, a := range assignments {
		if !a.ActiveAt(now) || !a.AppliesTo(rc) {
			continue
		}
		level := s.catalog.LevelOf(a.Role)
		if !found || level > bestLevel || (level == bestLevel && a.AssignedAt.Before(bestAt)) {
			best = a.Role
			bestLevel = level
			bestAt = a.AssignedAt
			found = true
		}
	}
	return best, found, nil
}

// IsSuperAdmin reports whether the user holds an active platform-admin
// assignment, irrespective of context.
func (s *Service) IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	assignments, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("load role assignments",
			slog.String("user_id", userID.String()),
			slog.String("correlation_id", shared.CorrelationIDFromContext(ctx)),
			slog.Any("error", err))
		return false, err
	}
	now := s.now()
	for _, a := range assignments {
		if a.Role == RolePlatformAdmin && a.ActiveAt(now) {
			return true, nil
		}
	}
	return false, nil
}

// GetEffectivePermissions is the query entry point. A user may always read
// their own effective permissions; reading another user's requires the
// staff-permissions-view gate in the same context, checked before the
// target's assignments are ever loaded.
func (s *Service) GetEffectivePermissions(ctx context.Context, requestingUserID, targetUserID uuid.UUID, rc BusinessContext, correlationID string) (EffectivePermissions, error) {
	if correlationID != "" {
		ctx = shared.ContextWithCorrelationID(ctx, correlationID)
	}
	if requestingUserID != targetUserID {
		if err := s.RequirePermission(ctx, requestingUserID, shared.PermStaffPermissionsView, rc); err != nil {
			s.logger.Error("effective permissions gate",
				slog.String("user_id", requestingUserID.String()),
				slog.String("target_user_id", targetUserID.String()),
				slog.String("correlation_id", correlationID),
				slog.Any("error", err))
			return EffectivePermissions{}, err
		}
	}
	result, err := s.EffectivePermissions(ctx, targetUserID, rc)
	if err != nil {
		return EffectivePermissions{}, err
	}
	s.logger.Info("effective permissions resolved",
		slog.String("target_user_id", targetUserID.String()),
		slog.String("correlation_id", correlationID),
		slog.Int("effective_permissions_count", len(result.Permissions)),
		slog.Int("assigned_roles_count", len(result.AssignedRoles)),
		slog.Int("hierarchy_level", result.HierarchyLevel))
	return result, nil
}

// BulkHasPermission checks a permission for many users at once. Loads run
// concurrently; two resolutions for different users need no coordination.
func (s *Service) BulkHasPermission(ctx context.Context, userIDs []uuid.UUID, permission string, rc BusinessContext) (map[uuid.UUID]bool, error) {
	results := make(map[uuid.UUID]bool, len(userIDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, userID := range userIDs {
		g.Go(func() error {
			ok, err := s.HasPermission(ctx, userID, permission, rc)
			if err != nil {
				return err
			}
			mu.Lock()
			results[userID] = ok
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
