package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheFixture(t *testing.T, assignments map[uuid.UUID][]RoleAssignment) (*CachedStore, *stubStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	inner := &stubStore{assignments: assignments}
	return NewCachedStore(inner, client, time.Minute), inner
}

func TestCachedStoreServesSnapshot(t *testing.T) {
	userID := uuid.New()
	businessID := uuid.New()
	assignment := activeAssignment(userID, businessID, RolePractitioner)
	cached, inner := newCacheFixture(t, map[uuid.UUID][]RoleAssignment{
		userID: {assignment},
	})
	ctx := context.Background()

	first, err := cached.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, assignment.ID, first[0].ID)
	assert.Len(t, inner.fetchedIDs(), 1)

	second, err := cached.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, assignment.Role, second[0].Role)
	assert.Len(t, inner.fetchedIDs(), 1, "second read must come from the snapshot")
}

func TestCachedStoreBumpInvalidates(t *testing.T) {
	userID := uuid.New()
	businessID := uuid.New()
	cached, inner := newCacheFixture(t, map[uuid.UUID][]RoleAssignment{
		userID: {activeAssignment(userID, businessID, RoleScheduler)},
	})
	ctx := context.Background()

	_, err := cached.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, inner.fetchedIDs(), 1)

	require.NoError(t, cached.Bump(ctx))

	_, err = cached.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, inner.fetchedIDs(), 2, "bump must force a reload")
}

func TestCachedStoreNilClientPassThrough(t *testing.T) {
	userID := uuid.New()
	inner := &stubStore{assignments: map[uuid.UUID][]RoleAssignment{
		userID: {activeAssignment(userID, uuid.New(), RoleClient)},
	}}
	cached := NewCachedStore(inner, nil, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cached.FindByUserID(ctx, userID)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Len(t, inner.fetchedIDs(), 3)
	require.NoError(t, cached.Bump(ctx))
}
