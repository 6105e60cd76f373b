package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisFundLock is a per-fund lock shared across service instances. Each
// holder gets a random token; only the token holder can release, and a
// crashed holder's lock expires with its TTL.
type RedisFundLock struct {
	cache  *DistributedCache
	logger *zap.Logger
}

func NewRedisFundLock(cache *DistributedCache, logger *zap.Logger) *RedisFundLock {
	return &RedisFundLock{cache: cache, logger: logger}
}

func fundLockKey(fundID uuid.UUID) string {
	return "lock:fund:" + fundID.String()
}

func (l *RedisFundLock) Acquire(ctx context.Context, fundID uuid.UUID, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.cache.SetNX(ctx, fundLockKey(fundID), token, ttl)
	if err != nil {
		return "", false, fmt.Errorf("acquire lock for fund %s: %w", fundID, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisFundLock) Release(ctx context.Context, fundID uuid.UUID, token string) error {
	released, err := l.cache.CompareAndDelete(ctx, fundLockKey(fundID), token)
	if err != nil {
		return fmt.Errorf("release lock for fund %s: %w", fundID, err)
	}
	if !released {
		l.logger.Warn("Fund lock expired before release", zap.String("fund_id", fundID.String()))
	}
	return nil
}

type memoryLease struct {
	token   string
	expires time.Time
}

// MemoryFundLock is the single-process FundLock used when redis is disabled
type MemoryFundLock struct {
	mu     sync.Mutex
	leases map[uuid.UUID]memoryLease
	now    func() time.Time
}

func NewMemoryFundLock() *MemoryFundLock {
	return &MemoryFundLock{
		leases: make(map[uuid.UUID]memoryLease),
		now:    time.Now,
	}
}

func (l *MemoryFundLock) Acquire(_ context.Context, fundID uuid.UUID, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, held := l.leases[fundID]; held && (lease.expires.IsZero() || now.Before(lease.expires)) {
		return "", false, nil
	}

	token := uuid.NewString()
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	l.leases[fundID] = memoryLease{token: token, expires: expires}
	return token, true, nil
}

func (l *MemoryFundLock) Release(_ context.Context, fundID uuid.UUID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lease, held := l.leases[fundID]; held && lease.token == token {
		delete(l.leases, fundID)
	}
	return nil
}
