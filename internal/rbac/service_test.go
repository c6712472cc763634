package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-platform/atrium-platform/internal/shared"
)

type stubStore struct {
	mu          sync.Mutex
	assignments map[uuid.UUID][]RoleAssignment
	err         error
	fetched     []uuid.UUID
}

func (s *stubStore) FindByUserID(_ context.Context, userID uuid.UUID) ([]RoleAssignment, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, userID)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.assignments[userID], nil
}

func (s *stubStore) fetchedIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.fetched...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *stubStore) *Service {
	svc := NewService(NewCatalog(), store, testLogger())
	svc.now = func() time.Time { return resolveNow }
	return svc
}

func TestEffectivePermissionsStorageErrorUnchanged(t *testing.T) {
	storageErr := errors.New("connection refused")
	store := &stubStore{err: storageErr}
	svc := newTestService(store)

	_, err := svc.EffectivePermissions(context.Background(), uuid.New(), businessCtx(uuid.New(), nil, nil))
	require.ErrorIs(t, err, storageErr)
}

func TestGetEffectivePermissionsSelfAccess(t *testing.T) {
	userID := uuid.New()
	businessID := uuid.New()
	store := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		userID: {activeAssignment(userID, businessID, RoleClient)},
	}}
	svc := newTestService(store)

	// A user without the staff gate still reads their own permissions.
	result, err := svc.GetEffectivePermissions(context.Background(), userID, userID, businessCtx(businessID, nil, nil), "corr-1")
	require.NoError(t, err)
	assert.Equal(t, userID, result.UserID)
	assert.True(t, result.Has(shared.PermBookingCreate))
	assert.False(t, result.Has(shared.PermStaffPermissionsView))

	// Only one load happened: the gate was never evaluated.
	assert.Equal(t, []uuid.UUID{userID}, store.fetchedIDs())
}

func TestGetEffectivePermissionsCrossUserDenied(t *testing.T) {
	requester := uuid.New()
	target := uuid.New()
	businessID := uuid.New()
	store := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		requester: {activeAssignment(requester, businessID, RoleClient)},
		target:    {activeAssignment(target, businessID, RolePractitioner)},
	}}
	svc := newTestService(store)

	_, err := svc.GetEffectivePermissions(context.Background(), requester, target, businessCtx(businessID, nil, nil), "corr-2")

	var denied *InsufficientPermissionsError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, requester, denied.UserID)
	assert.Equal(t, shared.PermStaffPermissionsView, denied.Permission)

	// The denial happens before the target's assignments are touched.
	for _, id := range store.fetchedIDs() {
		assert.NotEqual(t, target, id)
	}
}

func TestGetEffectivePermissionsCrossUserAllowed(t *testing.T) {
	requester := uuid.New()
	target := uuid.New()
	businessID := uuid.New()
	store := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		requester: {activeAssignment(requester, businessID, RoleLocationManager)},
		target:    {activeAssignment(target, businessID, RoleScheduler)},
	}}
	svc := newTestService(store)

	result, err := svc.GetEffectivePermissions(context.Background(), requester, target, businessCtx(businessID, nil, nil), "corr-3")
	require.NoError(t, err)
	assert.Equal(t, target, result.UserID)
	assert.Equal(t, 200, result.HierarchyLevel)
}

func TestUserRoleTieBreak(t *testing.T) {
	userID := uuid.New()
	businessID := uuid.New()

	older := activeAssignment(userID, businessID, RolePractitioner)
	older.AssignedAt = resolveNow.Add(-48 * time.Hour)
	newer := activeAssignment(userID, businessID, RoleSeniorPractitioner)
	newer.AssignedAt = resolveNow.Add(-12 * time.Hour)
	samePeer := activeAssignment(userID, businessID, RoleSeniorPractitioner)
	samePeer.AssignedAt = resolveNow.Add(-36 * time.Hour)

	store := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		userID: {older, newer, samePeer},
	}}
	svc := newTestService(store)

	role, found, err := svc.UserRole(context.Background(), userID, businessCtx(businessID, nil, nil))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RoleSeniorPractitioner, role)

	_, found, err = svc.UserRole(context.Background(), userID, businessCtx(uuid.New(), nil, nil))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIsSuperAdmin(t *testing.T) {
	admin := uuid.New()
	mortal := uuid.New()

	expired := activeAssignment(mortal, uuid.New(), RolePlatformAdmin)
	past := resolveNow.Add(-time.Hour)
	expired.ExpiresAt = &past

	store := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		admin:  {activeAssignment(admin, uuid.New(), RolePlatformAdmin)},
		mortal: {expired, activeAssignment(mortal, uuid.New(), RoleBusinessOwner)},
	}}
	svc := newTestService(store)

	got, err := svc.IsSuperAdmin(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = svc.IsSuperAdmin(context.Background(), mortal)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCanActOnRoleExcludesOwnTier(t *testing.T) {
	actor := uuid.New()
	businessID := uuid.New()
	store := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		actor: {activeAssignment(actor, businessID, RoleBusinessAdmin)},
	}}
	svc := newTestService(store)
	rc := businessCtx(businessID, nil, nil)

	ok, err := svc.CanActOnRole(context.Background(), actor, RoleLocationManager, rc)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanActOnRole(context.Background(), actor, RoleBusinessAdmin, rc)
	require.NoError(t, err)
	assert.False(t, ok, "lateral delegation must be refused")

	ok, err = svc.CanActOnRole(context.Background(), actor, RoleBusinessOwner, rc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBulkHasPermission(t *testing.T) {
	businessID := uuid.New()
	practitioner := uuid.New()
	guest := uuid.New()
	nobody := uuid.New()

	store := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		practitioner: {activeAssignment(practitioner, businessID, RolePractitioner)},
		guest:        {activeAssignment(guest, businessID, RoleGuest)},
	}}
	svc := newTestService(store)

	results, err := svc.BulkHasPermission(context.Background(),
		[]uuid.UUID{practitioner, guest, nobody},
		shared.PermClientsView, businessCtx(businessID, nil, nil))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[practitioner])
	assert.False(t, results[guest])
	assert.False(t, results[nobody])
}

func TestRequirePermission(t *testing.T) {
	userID := uuid.New()
	businessID := uuid.New()
	store := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		userID: {activeAssignment(userID, businessID, RoleReceptionist)},
	}}
	svc := newTestService(store)
	rc := businessCtx(businessID, nil, nil)

	require.NoError(t, svc.RequirePermission(context.Background(), userID, shared.PermClientsView, rc))

	err := svc.RequirePermission(context.Background(), userID, shared.PermBusinessManage, rc)
	var denied *InsufficientPermissionsError
	require.ErrorAs(t, err, &denied)
}
