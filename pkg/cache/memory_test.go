package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	c := NewMemory()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KindAgentResult, "a1", []byte("hello")))
	v, ok, err := c.Get(ctx, KindAgentResult, "a1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), v)
}

func TestMemoryGetMissing(t *testing.T) {
	c := NewMemory()
	defer c.Close()
	_, ok, err := c.Get(context.Background(), KindGeneric, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryTTLExpires(t *testing.T) {
	c := NewMemory()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KindGeneric, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok, err := c.Get(ctx, KindGeneric, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryDelete(t *testing.T) {
	c := NewMemory()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KindUserData, "u1", []byte("v")))
	require.NoError(t, c.Delete(ctx, KindUserData, "u1"))
	_, ok, _ := c.Get(ctx, KindUserData, "u1")
	require.False(t, ok)
}

func TestDefaultTTLByKind(t *testing.T) {
	require.Equal(t, 86400*time.Second, DefaultTTL(KindSession))
	require.Equal(t, 300*time.Second, DefaultTTL(KindAgentResult))
	require.Equal(t, 7200*time.Second, DefaultTTL(KindUserData))
	require.Equal(t, 3600*time.Second, DefaultTTL(KindGeneric))
}
