package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type failingStore struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (s *failingStore) Take(_ context.Context, _ string, _ Class, rule Rule, _ time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return Result{}, errors.New("connection refused")
	}
	return Result{Allowed: true, Remaining: rule.MaxTokens - 1}, nil
}

func TestTake_RefillsByWholeIntervals(t *testing.T) {
	rule := Rule{MaxTokens: 2, RefillRate: 1, RefillInterval: time.Minute}
	start := time.Unix(0, 0)
	b := newBucket(rule, start)

	b, r := take(b, rule, start)
	assert.True(t, r.Allowed)
	b, r = take(b, rule, start)
	assert.True(t, r.Allowed)
	b, r = take(b, rule, start.Add(30*time.Second))
	assert.False(t, r.Allowed)
	assert.Equal(t, 30*time.Second, r.RetryAfter)

	// 90s after start: one interval elapsed, one token added, last refill at +60s.
	b, r = take(b, rule, start.Add(90*time.Second))
	assert.True(t, r.Allowed)
	assert.Equal(t, start.Add(time.Minute), b.lastRefill)

	// Long idle refills to the cap only.
	_, r = take(b, rule, start.Add(time.Hour))
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)
}

func TestLimiter_NeverAdmitsMoreThanMaxTokensPerWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(nil, WithClock(clock.Now))
	for class, rule := range DefaultRules {
		allowed := 0
		for i := 0; i < rule.MaxTokens*3; i++ {
			if l.Check(context.Background(), "1.2.3.4:abc", class).Allowed {
				allowed++
			}
			clock.Advance(rule.RefillInterval / time.Duration(rule.MaxTokens*4))
		}
		assert.Equal(t, rule.MaxTokens, allowed, "class %s", class)
	}
}

func TestLimiter_DeniedResultCarriesRetryAfter(t *testing.T) {
	clock := newFakeClock()
	l := New(nil, WithClock(clock.Now))
	for i := 0; i < 5; i++ {
		require.True(t, l.Check(context.Background(), "id", ClassModeration).Allowed)
	}
	clock.Advance(20 * time.Second)
	r := l.Check(context.Background(), "id", ClassModeration)
	assert.False(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)
	assert.Equal(t, 40, r.RetryAfterSeconds())

	clock.Advance(40 * time.Second)
	assert.True(t, l.Check(context.Background(), "id", ClassModeration).Allowed)
}

func TestLimiter_ConcurrentChecksRespectBudget(t *testing.T) {
	l := New(nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check(context.Background(), "burst", ClassBooking).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestLimiter_FallsBackAndReportsDegraded(t *testing.T) {
	primary := &failingStore{}
	l := New(primary)
	assert.False(t, l.Degraded())

	assert.True(t, l.Check(context.Background(), "id", ClassGeneral).Allowed)
	assert.False(t, l.Degraded())

	primary.fail = true
	r := l.Check(context.Background(), "id", ClassGeneral)
	assert.True(t, r.Allowed)
	assert.True(t, l.Degraded())

	primary.fail = false
	l.Check(context.Background(), "id", ClassGeneral)
	assert.False(t, l.Degraded())
}

func TestLimiter_NilPrimaryIsDegraded(t *testing.T) {
	assert.True(t, New(nil).Degraded())
}

func TestMemoryStore_SweepEvictsIdleBuckets(t *testing.T) {
	m := NewMemoryStore()
	rule := DefaultRules[ClassGeneral]
	now := time.Now()
	_, _ = m.Take(context.Background(), "old", ClassGeneral, rule, now.Add(-11*time.Minute))
	_, _ = m.Take(context.Background(), "fresh", ClassGeneral, rule, now)
	require.Equal(t, 2, m.Len())

	n, err := m.Sweep(context.Background(), now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())
}

func TestRedisStore_TokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, 10*time.Minute)
	rule := Rule{MaxTokens: 3, RefillRate: 3, RefillInterval: time.Minute}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		r, err := store.Take(ctx, "1.1.1.1:tok", ClassBooking, rule, now)
		require.NoError(t, err)
		assert.True(t, r.Allowed)
		assert.Equal(t, i, r.Remaining)
	}
	r, err := store.Take(ctx, "1.1.1.1:tok", ClassBooking, rule, now.Add(15*time.Second))
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.Equal(t, 45*time.Second, r.RetryAfter)

	r, err = store.Take(ctx, "1.1.1.1:tok", ClassBooking, rule, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 2, r.Remaining)

	assert.True(t, mr.Exists("ratelimit:booking:1.1.1.1:tok"))
	assert.Equal(t, 10*time.Minute, mr.TTL("ratelimit:booking:1.1.1.1:tok"))
}

func TestRedisStore_UnreachableTriggersFallback(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	l := New(NewRedisStore(client, time.Minute))

	assert.True(t, l.Check(context.Background(), "id", ClassAuth).Allowed)
	assert.False(t, l.Degraded())

	mr.Close()
	assert.True(t, l.Check(context.Background(), "id", ClassAuth).Allowed)
	assert.True(t, l.Degraded())
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "10.0.0.1:anon", Identifier("10.0.0.1", ""))
	assert.Equal(t, "10.0.0.1:abcdefghijklmnop", Identifier("10.0.0.1", "Bearer abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "10.0.0.1:short", Identifier("10.0.0.1", "Bearer short"))
	assert.NotEqual(t, Identifier("10.0.0.1", "Bearer aaaaaaaaaaaaaaaa1"), Identifier("10.0.0.2", "Bearer aaaaaaaaaaaaaaaa1"))
	assert.Equal(t, "user:42", UserIdentifier(42))
	assert.Equal(t, "ip:10.0.0.1", ClientIdentifier("10.0.0.1"))
}
