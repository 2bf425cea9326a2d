// Package presence holds the liveness policy shared by the membership and
// voice coordinators. It is pure policy: thresholds in, verdict out.
package presence

import "time"

const (
	DefaultGraceWindow    = 5 * time.Second
	DefaultStaleThreshold = 60 * time.Second
)

type Monitor struct {
	graceWindow    time.Duration
	staleThreshold time.Duration
}

func NewMonitor(graceWindow, staleThreshold time.Duration) *Monitor {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}

	return &Monitor{
		graceWindow:    graceWindow,
		staleThreshold: staleThreshold,
	}
}

// IsHealthy reports liveness. A participant younger than the grace window is
// always healthy, so it is never evicted before its first heartbeat.
func (m *Monitor) IsHealthy(connectedAt, lastHeartbeat time.Time, state string, now time.Time) bool {
	if now.Sub(connectedAt) < m.graceWindow {
		return true
	}

	return state == "connected" && now.Sub(lastHeartbeat) < m.staleThreshold
}

// IsStale is the eviction predicate used by the sweeps.
func (m *Monitor) IsStale(connectedAt, lastHeartbeat time.Time, now time.Time) bool {
	return !m.IsHealthy(connectedAt, lastHeartbeat, "connected", now)
}
