package auth

import (
	"context"
	"testing"
	"time"

	"terminal-terrace/foodgram/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisTokenStore(t *testing.T) {
	client := testutils.SetupTestRedis(t)
	if client == nil {
		t.Skip("redis unavailable")
	}
	store := NewRedisTokenStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "jti-1", 42, time.Minute))

	ok, err := store.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	members, err := client.SMembers(ctx, UserTokensPrefix+"42").Result()
	require.NoError(t, err)
	assert.Contains(t, members, "jti-1")

	require.NoError(t, store.Delete(ctx, "jti-1"))
	ok, err = store.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	members, err = client.SMembers(ctx, UserTokensPrefix+"42").Result()
	require.NoError(t, err)
	assert.NotContains(t, members, "jti-1")

	require.NoError(t, store.Save(ctx, "jti-2", 42, time.Minute))
	require.NoError(t, store.Save(ctx, "jti-3", 42, time.Minute))
	require.NoError(t, store.Save(ctx, "jti-4", 43, time.Minute))
	require.NoError(t, store.DeleteAll(ctx, 42))

	for _, jti := range []string{"jti-2", "jti-3"} {
		ok, err = store.Exists(ctx, jti)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ok, err = store.Exists(ctx, "jti-4")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, store.Delete(ctx, "jti-4"))
}
