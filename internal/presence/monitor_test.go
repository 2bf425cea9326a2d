package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsHealthyWithinGraceWindow(t *testing.T) {
	m := NewMonitor(5*time.Second, 60*time.Second)
	now := time.Now()

	// no heartbeat yet, but freshly connected
	assert.True(t, m.IsHealthy(now.Add(-time.Second), time.Time{}, "connecting", now))
}

func TestIsHealthyConnectedWithRecentHeartbeat(t *testing.T) {
	m := NewMonitor(5*time.Second, 60*time.Second)
	now := time.Now()

	connectedAt := now.Add(-10 * time.Minute)
	assert.True(t, m.IsHealthy(connectedAt, now.Add(-30*time.Second), "connected", now))
	assert.False(t, m.IsHealthy(connectedAt, now.Add(-90*time.Second), "connected", now))
}

func TestIsHealthyRequiresConnectedStateAfterGrace(t *testing.T) {
	m := NewMonitor(5*time.Second, 60*time.Second)
	now := time.Now()

	connectedAt := now.Add(-time.Minute)
	assert.False(t, m.IsHealthy(connectedAt, now, "disconnected", now))
	assert.True(t, m.IsHealthy(connectedAt, now, "connected", now))
}

func TestIsStale(t *testing.T) {
	m := NewMonitor(5*time.Second, 60*time.Second)
	now := time.Now()

	connectedAt := now.Add(-10 * time.Minute)
	assert.False(t, m.IsStale(connectedAt, now.Add(-10*time.Second), now))
	assert.True(t, m.IsStale(connectedAt, now.Add(-2*time.Minute), now))

	// young participants are never stale
	assert.False(t, m.IsStale(now.Add(-time.Second), time.Time{}, now))
}

func TestDefaultsApplied(t *testing.T) {
	m := NewMonitor(0, 0)
	now := time.Now()

	assert.True(t, m.IsHealthy(now.Add(-4*time.Second), time.Time{}, "", now))
	assert.False(t, m.IsHealthy(now.Add(-6*time.Second), time.Time{}, "", now))
}
