package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-platform/atrium-platform/internal/shared"
)

type stubGrantStore struct {
	stubStore
	inserted []RoleAssignment
	byID     map[uuid.UUID]RoleAssignment
	outcome  UpdateResult
}

func (s *stubGrantStore) Insert(_ context.Context, a RoleAssignment) error {
	s.inserted = append(s.inserted, a)
	return nil
}

func (s *stubGrantStore) FindByID(_ context.Context, id uuid.UUID) (RoleAssignment, error) {
	a, ok := s.byID[id]
	if !ok {
		return RoleAssignment{}, ErrAssignmentNotFound
	}
	return a, nil
}

func (s *stubGrantStore) Deactivate(_ context.Context, _ uuid.UUID, _ int64) (UpdateResult, error) {
	return s.outcome, nil
}

type stubAudit struct {
	logs []shared.AuditLog
}

func (a *stubAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type stubInvalidator struct {
	bumps int
}

func (b *stubInvalidator) Bump(context.Context) error {
	b.bumps++
	return nil
}

type grantsFixture struct {
	grants *Grants
	store  *stubGrantStore
	audit  *stubAudit
	cache  *stubInvalidator
}

func newGrantsFixture(assignments map[uuid.UUID][]RoleAssignment) *grantsFixture {
	store := &stubGrantStore{
		stubStore: stubStore{assignments: assignments},
		byID:      make(map[uuid.UUID]RoleAssignment),
		outcome:   UpdateApplied,
	}
	catalog := NewCatalog()
	authorizer := NewService(catalog, store, testLogger())
	authorizer.now = func() time.Time { return resolveNow }
	audit := &stubAudit{}
	cache := &stubInvalidator{}
	grants := NewGrants(catalog, authorizer, store, audit, cache, testLogger())
	grants.now = func() time.Time { return resolveNow }
	return &grantsFixture{grants: grants, store: store, audit: audit, cache: cache}
}

func TestGrantByOwner(t *testing.T) {
	actor := uuid.New()
	target := uuid.New()
	businessID := uuid.New()
	fx := newGrantsFixture(map[uuid.UUID][]RoleAssignment{
		actor: {activeAssignment(actor, businessID, RoleBusinessOwner)},
	})

	expires := resolveNow.Add(30 * 24 * time.Hour)
	assignment, err := fx.grants.Grant(context.Background(), actor, GrantRequest{
		UserID:    target,
		Role:      RolePractitioner,
		Context:   businessCtx(businessID, nil, nil),
		ExpiresAt: &expires,
	})
	require.NoError(t, err)

	assert.Equal(t, target, assignment.UserID)
	assert.Equal(t, RolePractitioner, assignment.Role)
	assert.Equal(t, actor, assignment.AssignedBy)
	assert.True(t, assignment.Active)
	assert.Equal(t, int64(1), assignment.Version)
	assert.Equal(t, SourceDirect, assignment.Source)
	assert.Equal(t, resolveNow, assignment.AssignedAt)

	require.Len(t, fx.store.inserted, 1)
	require.Len(t, fx.audit.logs, 1)
	assert.Equal(t, "rbac.grant", fx.audit.logs[0].Action)
	assert.Equal(t, actor, fx.audit.logs[0].ActorID)
	assert.Equal(t, 1, fx.cache.bumps)
}

func TestGrantLateralDenied(t *testing.T) {
	actor := uuid.New()
	businessID := uuid.New()
	fx := newGrantsFixture(map[uuid.UUID][]RoleAssignment{
		actor: {activeAssignment(actor, businessID, RoleBusinessAdmin)},
	})

	_, err := fx.grants.Grant(context.Background(), actor, GrantRequest{
		UserID:  uuid.New(),
		Role:    RoleBusinessAdmin,
		Context: businessCtx(businessID, nil, nil),
	})
	require.ErrorIs(t, err, ErrRoleNotDelegable)
	assert.Empty(t, fx.store.inserted)
	assert.Empty(t, fx.audit.logs)
	assert.Zero(t, fx.cache.bumps)
}

func TestGrantUnknownRole(t *testing.T) {
	actor := uuid.New()
	businessID := uuid.New()
	fx := newGrantsFixture(map[uuid.UUID][]RoleAssignment{
		actor: {activeAssignment(actor, businessID, RoleBusinessOwner)},
	})

	_, err := fx.grants.Grant(context.Background(), actor, GrantRequest{
		UserID:  uuid.New(),
		Role:    Role("WIZARD"),
		Context: businessCtx(businessID, nil, nil),
	})
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestGrantInvalidContext(t *testing.T) {
	actor := uuid.New()
	fx := newGrantsFixture(nil)

	dept := uuid.New()
	_, err := fx.grants.Grant(context.Background(), actor, GrantRequest{
		UserID:  uuid.New(),
		Role:    RoleClient,
		Context: BusinessContext{BusinessID: uuid.New(), DepartmentID: &dept},
	})
	require.ErrorIs(t, err, ErrInvalidContext)
}

func TestRevokeByHigherActor(t *testing.T) {
	actor := uuid.New()
	target := uuid.New()
	businessID := uuid.New()

	victim := activeAssignment(target, businessID, RolePractitioner)
	fx := newGrantsFixture(map[uuid.UUID][]RoleAssignment{
		actor: {activeAssignment(actor, businessID, RoleBusinessAdmin)},
	})
	fx.store.byID[victim.ID] = victim

	outcome, err := fx.grants.Revoke(context.Background(), actor, victim.ID, victim.Version)
	require.NoError(t, err)
	assert.Equal(t, UpdateApplied, outcome)
	require.Len(t, fx.audit.logs, 1)
	assert.Equal(t, "rbac.revoke", fx.audit.logs[0].Action)
	assert.Equal(t, 1, fx.cache.bumps)
}

func TestRevokeOutrankedActorDenied(t *testing.T) {
	actor := uuid.New()
	target := uuid.New()
	businessID := uuid.New()

	victim := activeAssignment(target, businessID, RolePractitioner)
	fx := newGrantsFixture(map[uuid.UUID][]RoleAssignment{
		actor: {activeAssignment(actor, businessID, RoleScheduler)},
	})
	fx.store.byID[victim.ID] = victim

	_, err := fx.grants.Revoke(context.Background(), actor, victim.ID, victim.Version)
	require.ErrorIs(t, err, ErrRevokeNotAllowed)
	assert.Empty(t, fx.audit.logs)
}

func TestRevokeSelf(t *testing.T) {
	userID := uuid.New()
	businessID := uuid.New()

	own := activeAssignment(userID, businessID, RolePractitioner)
	fx := newGrantsFixture(map[uuid.UUID][]RoleAssignment{
		userID: {own},
	})
	fx.store.byID[own.ID] = own

	outcome, err := fx.grants.Revoke(context.Background(), userID, own.ID, own.Version)
	require.NoError(t, err)
	assert.Equal(t, UpdateApplied, outcome)
}

func TestRevokeSelfTopTierDenied(t *testing.T) {
	adminID := uuid.New()

	own := activeAssignment(adminID, uuid.New(), RolePlatformAdmin)
	fx := newGrantsFixture(map[uuid.UUID][]RoleAssignment{
		adminID: {own},
	})
	fx.store.byID[own.ID] = own

	// The last rung of the ladder cannot saw itself off.
	_, err := fx.grants.Revoke(context.Background(), adminID, own.ID, own.Version)
	require.ErrorIs(t, err, ErrRevokeNotAllowed)
}

func TestRevokeStaleVersionConflicts(t *testing.T) {
	actor := uuid.New()
	target := uuid.New()
	businessID := uuid.New()

	victim := activeAssignment(target, businessID, RoleScheduler)
	victim.Version = 3
	fx := newGrantsFixture(map[uuid.UUID][]RoleAssignment{
		actor: {activeAssignment(actor, businessID, RoleBusinessOwner)},
	})
	fx.store.byID[victim.ID] = victim
	fx.store.outcome = UpdateConflict

	outcome, err := fx.grants.Revoke(context.Background(), actor, victim.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, UpdateConflict, outcome)
	assert.Empty(t, fx.audit.logs, "conflict must not be audited as a revoke")
	assert.Zero(t, fx.cache.bumps)
}

func TestRevokeMissingAssignment(t *testing.T) {
	actor := uuid.New()
	fx := newGrantsFixture(nil)

	_, err := fx.grants.Revoke(context.Background(), actor, uuid.New(), 1)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
