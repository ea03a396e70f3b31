package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatemcp/platform/internal/auth"
)

func TestAllow_WithinBudget(t *testing.T) {
	l := New(Limits{PerMinute: 5, PerHour: 100, PerDay: 1000, Burst: 5})

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("user-1", []auth.Role{auth.RoleViewer})
		require.True(t, ok, "request %d should be allowed", i)
	}
}

func TestAllow_ExceedsMinuteBudget(t *testing.T) {
	l := New(Limits{PerMinute: 2, PerHour: 100, PerDay: 1000, Burst: 100})

	ok1, _ := l.Allow("user-1", []auth.Role{auth.RoleViewer})
	ok2, _ := l.Allow("user-1", []auth.Role{auth.RoleViewer})
	ok3, retryAfter := l.Allow("user-1", []auth.Role{auth.RoleViewer})

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestAllow_PerKeyIsolation(t *testing.T) {
	l := New(Limits{PerMinute: 1, PerHour: 100, PerDay: 1000, Burst: 100})

	ok1, _ := l.Allow("user-1", []auth.Role{auth.RoleViewer})
	ok2, _ := l.Allow("user-2", []auth.Role{auth.RoleViewer})

	assert.True(t, ok1)
	assert.True(t, ok2)
}

func TestCheckErr_ReturnsRateLimitedKind(t *testing.T) {
	l := New(Limits{PerMinute: 1, PerHour: 100, PerDay: 1000, Burst: 100})

	require.NoError(t, l.CheckErr("user-1", []auth.Role{auth.RoleViewer}))
	assert.Error(t, l.CheckErr("user-1", []auth.Role{auth.RoleViewer}))
}

func TestSweep_RemovesStaleCounters(t *testing.T) {
	l := New(Limits{PerMinute: 10, PerHour: 100, PerDay: 1000, Burst: 10})
	l.Allow("user-1", []auth.Role{auth.RoleViewer})

	removed := l.Sweep(time.Now().Add(48 * time.Hour))
	assert.Equal(t, 1, removed)
}
