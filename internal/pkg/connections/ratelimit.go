package connections

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/cache"
)

// SyncCooldown is the minimum gap between manual resyncs of one
// organization.
const SyncCooldown = 60 * time.Second

// CooldownLimiter rate-limits manual resync requests per organization.
// The gate lives in Redis so it holds across instances; when Redis is
// unreachable it degrades to a process-local map, which is acceptable
// because the limiter exists for abuse mitigation, not correctness.
type CooldownLimiter struct {
	mu       sync.Mutex
	last     map[uint]time.Time
	cooldown time.Duration
	now      func() time.Time
	shared   bool
}

// NewCooldownLimiter creates a limiter with the given cooldown.
func NewCooldownLimiter(cooldown time.Duration) *CooldownLimiter {
	return &CooldownLimiter{
		last:     make(map[uint]time.Time),
		cooldown: cooldown,
		now:      time.Now,
		shared:   true,
	}
}

// TryAcquire reports whether the organization may sync now, recording the
// acquisition when it may. Callers must fail with ErrRateLimited on false.
func (l *CooldownLimiter) TryAcquire(orgID uint) bool {
	if l.shared {
		key := fmt.Sprintf("sync:cooldown:%d", orgID)
		ok, err := cache.GetClient().SetNX(context.Background(), key, l.now().Unix(), l.cooldown).Result()
		if err == nil {
			return ok
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[orgID]; ok && now.Sub(last) < l.cooldown {
		return false
	}
	l.last[orgID] = now
	return true
}
