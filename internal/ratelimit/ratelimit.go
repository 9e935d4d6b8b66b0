// Package ratelimit implements a token bucket per (identifier, endpoint class).
//
// The primary store must do check-and-decrement atomically on the server side
// (Redis script or a locked database row). When it is unreachable the Limiter
// falls back to a process-local map. That fallback is a degraded mode: every
// instance keeps its own buckets, so a client spread over N instances gets up
// to N times the configured budget. Degraded mode is logged and reported by
// Degraded() so it is visible on the health endpoint.
package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"meetly/internal/logger"

	"go.uber.org/zap"
)

type Class string

const (
	ClassAuth       Class = "auth"
	ClassBooking    Class = "booking"
	ClassMessage    Class = "message"
	ClassWallet     Class = "wallet"
	ClassModeration Class = "moderation"
	ClassGeneral    Class = "general"
	// ClassClient is charged per client IP before authentication, so requests
	// that never reach a per-account bucket are still metered.
	ClassClient Class = "client"
)

type Rule struct {
	MaxTokens      int
	RefillRate     int
	RefillInterval time.Duration
}

// DefaultRules: moderation and auth are the strictest since they guard dispute filing and OTP issuance.
var DefaultRules = map[Class]Rule{
	ClassAuth:       {MaxTokens: 5, RefillRate: 5, RefillInterval: time.Minute},
	ClassBooking:    {MaxTokens: 10, RefillRate: 10, RefillInterval: time.Minute},
	ClassMessage:    {MaxTokens: 30, RefillRate: 30, RefillInterval: time.Minute},
	ClassWallet:     {MaxTokens: 10, RefillRate: 10, RefillInterval: time.Minute},
	ClassModeration: {MaxTokens: 5, RefillRate: 5, RefillInterval: time.Minute},
	ClassGeneral:    {MaxTokens: 60, RefillRate: 60, RefillInterval: time.Minute},
	ClassClient:     {MaxTokens: 120, RefillRate: 120, RefillInterval: time.Minute},
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1 when denied.
func (r Result) RetryAfterSeconds() int {
	if r.Allowed {
		return 0
	}
	s := int((r.RetryAfter + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// Store performs one atomic take on a bucket.
type Store interface {
	Take(ctx context.Context, identifier string, class Class, rule Rule, now time.Time) (Result, error)
}

// Sweeper is implemented by stores that need idle buckets evicted explicitly.
type Sweeper interface {
	Sweep(ctx context.Context, idleBefore time.Time) (int, error)
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// take refills b by whole intervals since lastRefill, capped at MaxTokens, then consumes one token.
// lastRefill only advances by whole intervals so partial progress is kept.
func take(b bucket, rule Rule, now time.Time) (bucket, Result) {
	if elapsed := now.Sub(b.lastRefill); elapsed >= rule.RefillInterval {
		intervals := int64(elapsed / rule.RefillInterval)
		tokens := int64(b.tokens) + intervals*int64(rule.RefillRate)
		if tokens > int64(rule.MaxTokens) {
			tokens = int64(rule.MaxTokens)
		}
		b.tokens = int(tokens)
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * rule.RefillInterval)
	}
	if b.tokens >= 1 {
		b.tokens--
		return b, Result{Allowed: true, Remaining: b.tokens}
	}
	retry := rule.RefillInterval - now.Sub(b.lastRefill)
	if retry < 0 {
		retry = 0
	}
	return b, Result{Allowed: false, Remaining: 0, RetryAfter: retry}
}

func newBucket(rule Rule, now time.Time) bucket {
	return bucket{tokens: rule.MaxTokens, lastRefill: now}
}

type Limiter struct {
	primary  Store
	fallback *MemoryStore
	rules    map[Class]Rule
	now      func() time.Time
	degraded atomic.Bool
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithRules(rules map[Class]Rule) Option {
	return func(l *Limiter) { l.rules = rules }
}

// New builds a Limiter. A nil primary runs permanently on the in-memory store,
// which is reported as degraded.
func New(primary Store, opts ...Option) *Limiter {
	l := &Limiter{
		primary:  primary,
		fallback: NewMemoryStore(),
		rules:    DefaultRules,
		now:      time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	if primary == nil {
		l.degraded.Store(true)
		logger.Log.Warn("rate limiter running on process-local memory store; limits are per instance")
	}
	return l
}

func (l *Limiter) Rule(class Class) Rule {
	if r, ok := l.rules[class]; ok {
		return r
	}
	return l.rules[ClassGeneral]
}

// Check consumes one token for identifier in the given class.
func (l *Limiter) Check(ctx context.Context, identifier string, class Class) Result {
	rule := l.Rule(class)
	now := l.now()
	if l.primary != nil {
		res, err := l.primary.Take(ctx, identifier, class, rule, now)
		if err == nil {
			if l.degraded.CompareAndSwap(true, false) {
				logger.Log.Info("rate limiter primary store recovered")
			}
			return res
		}
		if l.degraded.CompareAndSwap(false, true) {
			logger.Log.Warn("rate limiter primary store unavailable, falling back to memory", zap.Error(err))
		}
	}
	res, _ := l.fallback.Take(ctx, identifier, class, rule, now)
	return res
}

// Degraded reports whether decisions are currently made by the in-memory fallback.
func (l *Limiter) Degraded() bool {
	return l.degraded.Load()
}

// StartSweeper evicts buckets idle for longer than idle every interval until ctx is done.
func (l *Limiter) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := l.now().Add(-idle)
				n, _ := l.fallback.Sweep(ctx, cutoff)
				if s, ok := l.primary.(Sweeper); ok {
					m, err := s.Sweep(ctx, cutoff)
					if err != nil {
						logger.Log.Warn("rate limit sweep failed", zap.Error(err))
					}
					n += m
				}
				if n > 0 {
					logger.Log.Debug("rate limit buckets evicted", zap.Int("count", n))
				}
			}
		}
	}()
}

const tokenPrefixLen = 16

// Identifier keys a bucket on client IP plus the first 16 characters of the
// bearer token, so one account on several devices is not throttled by IP alone.
func Identifier(clientIP, authorization string) string {
	token := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if token == "" {
		return clientIP + ":anon"
	}
	if len(token) > tokenPrefixLen {
		token = token[:tokenPrefixLen]
	}
	return clientIP + ":" + token
}

// ClientIdentifier keys a bucket on the client IP alone.
func ClientIdentifier(clientIP string) string {
	return "ip:" + clientIP
}

// UserIdentifier keys a bucket on an authenticated account. JWTs share their
// header prefix, so once the caller is known the account is the better key.
func UserIdentifier(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}
