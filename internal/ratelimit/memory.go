package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps buckets in a process-local map.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memBucket
}

type memBucket struct {
	bucket
	touched time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*memBucket)}
}

func (m *MemoryStore) Take(_ context.Context, identifier string, class Class, rule Rule, now time.Time) (Result, error) {
	key := string(class) + "|" + identifier
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok {
		b = &memBucket{bucket: newBucket(rule, now)}
		m.buckets[key] = b
	}
	next, res := take(b.bucket, rule, now)
	b.bucket = next
	b.touched = now
	return res, nil
}

// Sweep drops buckets not touched since idleBefore.
func (m *MemoryStore) Sweep(_ context.Context, idleBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, b := range m.buckets {
		if b.touched.Before(idleBefore) {
			delete(m.buckets, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
