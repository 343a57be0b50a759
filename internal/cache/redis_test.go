package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisDraftStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisDraftStore(mr.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisDraftStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Hour)

	got, err := s.Get(ctx, "session:asm_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set(ctx, "session:asm_1", []byte(`{"currentSection":1}`)))
	got, err = s.Get(ctx, "session:asm_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"currentSection":1}`, string(got))
	assert.True(t, mr.Exists("hireflow:draft:session:asm_1"))

	require.NoError(t, s.Delete(ctx, "session:asm_1"))
	got, err = s.Get(ctx, "session:asm_1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisDraftStoreExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Minute)
	require.NoError(t, s.Set(ctx, "builder:job_1", []byte("x")))
	mr.FastForward(2 * time.Minute)
	got, err := s.Get(ctx, "builder:job_1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewRedisDraftStoreFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedisDraftStore(addr, "", 0, 0)
	assert.Error(t, err)
}
