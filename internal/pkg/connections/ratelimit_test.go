package connections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// The tests pin the limiter to its local fallback so they are independent
// of a Redis instance on the test host.

func TestTryAcquireCooldownWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewCooldownLimiter(SyncCooldown)
	l.shared = false
	l.now = func() time.Time { return now }

	assert.True(t, l.TryAcquire(1), "first request passes")
	assert.False(t, l.TryAcquire(1), "immediate retry is blocked")

	now = now.Add(30 * time.Second)
	assert.False(t, l.TryAcquire(1), "still inside the cooldown")

	now = now.Add(31 * time.Second)
	assert.True(t, l.TryAcquire(1), "cooldown elapsed")
}

func TestTryAcquirePerOrganization(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewCooldownLimiter(SyncCooldown)
	l.shared = false
	l.now = func() time.Time { return now }

	assert.True(t, l.TryAcquire(1))
	assert.True(t, l.TryAcquire(2), "organizations do not share a cooldown")
	assert.False(t, l.TryAcquire(2))
}

func TestFailedAcquireDoesNotExtendCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewCooldownLimiter(SyncCooldown)
	l.shared = false
	l.now = func() time.Time { return now }

	assert.True(t, l.TryAcquire(1))

	// Hammering during the cooldown must not push the window out.
	for i := 0; i < 10; i++ {
		now = now.Add(5 * time.Second)
		l.TryAcquire(1)
	}

	now = now.Add(11 * time.Second) // 61s after the successful acquire
	assert.True(t, l.TryAcquire(1))
}
