package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
)

const leaseKey = "fullsync:pipeline:lease"

// RedisLease implements pipeline.Lease with an atomic SETNX. The TTL bounds
// how long a crashed run can block the chain.
type RedisLease struct {
	client *redis.Client
}

// NewRedisLease creates a Redis-backed pipeline lease
func NewRedisLease(client *redis.Client) *RedisLease {
	return &RedisLease{client: client}
}

// Acquire returns true when the lease was free and is now held by the run
func (l *RedisLease) Acquire(ctx context.Context, runID uuid.UUID, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, leaseKey, runID.String(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lease acquire failed: %w", err)
	}
	return ok, nil
}

// Release frees the lease only when held by the given run, so a slow run
// cannot release a successor's lease after its own expired
func (l *RedisLease) Release(ctx context.Context, runID uuid.UUID) error {
	holder, err := l.client.Get(ctx, leaseKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lease release failed: %w", err)
	}
	if holder != runID.String() {
		return nil
	}
	if err := l.client.Del(ctx, leaseKey).Err(); err != nil {
		return fmt.Errorf("lease release failed: %w", err)
	}
	return nil
}

// Ensure RedisLease implements pipeline.Lease
var _ pipeline.Lease = (*RedisLease)(nil)

// InMemoryLease implements pipeline.Lease for single-instance deployments
// and testing
type InMemoryLease struct {
	mu        sync.Mutex
	holder    uuid.UUID
	expiresAt time.Time
	now       func() time.Time
}

// NewInMemoryLease creates an in-memory pipeline lease
func NewInMemoryLease() *InMemoryLease {
	return &InMemoryLease{now: time.Now}
}

// Acquire returns true when the lease was free or expired and is now held
func (l *InMemoryLease) Acquire(ctx context.Context, runID uuid.UUID, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder != uuid.Nil && l.now().Before(l.expiresAt) {
		return false, nil
	}
	l.holder = runID
	l.expiresAt = l.now().Add(ttl)
	return true, nil
}

// Release frees the lease if held by the given run
func (l *InMemoryLease) Release(ctx context.Context, runID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder == runID {
		l.holder = uuid.Nil
		l.expiresAt = time.Time{}
	}
	return nil
}

// Ensure InMemoryLease implements pipeline.Lease
var _ pipeline.Lease = (*InMemoryLease)(nil)
