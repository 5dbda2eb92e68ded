package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/enlite/internal/config"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := New(context.Background(), config.Redis{Addr: mr.Addr(), Prefix: "enlite:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStore_SetGet(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "token", "abc"))
	v, ok, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	raw, err := mr.Get("enlite:token")
	require.NoError(t, err)
	assert.Equal(t, "abc", raw)
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := setupStore(t)

	_, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RemoveAndClearKeepForeignKeys(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, s.Set(ctx, "token", "abc"))
	require.NoError(t, s.Set(ctx, "username", "alice"))

	require.NoError(t, s.Remove(ctx, "token"))
	assert.False(t, mr.Exists("enlite:token"))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists("enlite:username"))
	assert.True(t, mr.Exists("other:key"))
}

func TestNew_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = New(context.Background(), config.Redis{Addr: addr})
	require.Error(t, err)
}
