package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis counts script invocations per key. Expiry is not simulated.
type fakeRedis struct {
	mu     sync.Mutex
	counts map[string]int64
	ttl    map[string]interface{}
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: make(map[string]int64), ttl: make(map[string]interface{})}
}

func (f *fakeRedis) exec(keys []string, args []interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.counts[keys[0]]++
	if f.counts[keys[0]] == 1 {
		f.ttl[keys[0]] = args[0]
	}
	return redis.NewCmdResult(f.counts[keys[0]], nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.exec(keys, args)
}

func (f *fakeRedis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.exec(keys, args)
}

func (f *fakeRedis) EvalRO(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.exec(keys, args)
}

func (f *fakeRedis) EvalShaRO(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.exec(keys, args)
}

func (f *fakeRedis) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeRedis) ScriptLoad(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.counts, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedis_Allow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := NewRedis(fake, "auth", Config{Points: 2, Window: time.Minute})

	assert.True(t, r.Allow(ctx, "10.0.0.1"))
	assert.True(t, r.Allow(ctx, "10.0.0.1"))
	assert.False(t, r.Allow(ctx, "10.0.0.1"))

	assert.Equal(t, int64(3), fake.counts["ratelimit:auth:10.0.0.1"])
	assert.Equal(t, int64(60000), fake.ttl["ratelimit:auth:10.0.0.1"])
}

func TestRedis_Release(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := NewRedis(fake, "match", Config{Points: 1, Window: time.Second})

	require.True(t, r.Allow(ctx, "conn-1"))
	require.False(t, r.Allow(ctx, "conn-1"))

	r.Release(ctx, "conn-1")
	assert.True(t, r.Allow(ctx, "conn-1"))
}

func TestRedis_FailsOpen(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	r := NewRedis(fake, "auth", Config{Points: 1, Window: time.Second})

	assert.True(t, r.Allow(context.Background(), "k"))
	assert.True(t, r.Allow(context.Background(), "k"))
}
