// Package proxy manages a pool of egress endpoints with health tracking.
package proxy

import (
	"log/slog"
	"sync"
	"time"
)

// minReports is how many outcomes an endpoint must accumulate before its
// success rate can demote it to cooldown.
const minReports = 5

// Endpoint is one egress identity. All mutation happens through Manager.
type Endpoint struct {
	Address string

	successCount  int
	failureCount  int
	cooldownUntil time.Time
}

func (e *Endpoint) total() int {
	return e.successCount + e.failureCount
}

// successRate is the rolling success rate. Endpoints without history are
// trusted until proven otherwise.
func (e *Endpoint) successRate() float64 {
	total := e.total()
	if total == 0 {
		return 1.0
	}
	return float64(e.successCount) / float64(total)
}

// Snapshot is a read-only view of one endpoint's health.
type Snapshot struct {
	Address       string
	SuccessCount  int
	FailureCount  int
	SuccessRate   float64
	CooldownUntil time.Time
}

// Manager owns the endpoint pool. Endpoints are never deleted, only put in
// cooldown and reinstated once the cooldown elapses.
type Manager struct {
	mu             sync.Mutex
	endpoints      []*Endpoint
	minSuccessRate float64
	cooldown       time.Duration
	now            func() time.Time
}

// NewManager builds a manager for the given proxy addresses.
func NewManager(addresses []string, minSuccessRate float64, cooldown time.Duration) *Manager {
	m := &Manager{
		minSuccessRate: minSuccessRate,
		cooldown:       cooldown,
		now:            time.Now,
	}
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		m.endpoints = append(m.endpoints, &Endpoint{Address: addr})
	}
	return m
}

// SetClock replaces the time source; tests use this to control cooldowns.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Size returns the number of endpoints in the pool.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.endpoints)
}

// Select returns the endpoint with the highest rolling success rate among
// those not in cooldown, or nil when the pool is empty or fully cooling
// down. Cooldown expiry is checked lazily against the current time.
func (m *Manager) Select() *Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var best *Endpoint
	for _, e := range m.endpoints {
		if e.cooldownUntil.After(now) {
			continue
		}
		if best == nil || e.successRate() > best.successRate() {
			best = e
		}
	}
	return best
}

// Report records a fetch outcome for an endpoint. A success rate below the
// configured minimum, once enough outcomes have accumulated, demotes the
// endpoint to cooldown.
func (m *Manager) Report(e *Endpoint, success bool, latency time.Duration) {
	if e == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if success {
		e.successCount++
	} else {
		e.failureCount++
	}

	rate := e.successRate()
	if e.total() >= minReports && rate < m.minSuccessRate {
		e.cooldownUntil = m.now().Add(m.cooldown)
		slog.Warn("proxy endpoint demoted to cooldown",
			slog.String("proxy", e.Address),
			slog.Float64("success_rate", rate),
			slog.Duration("cooldown", m.cooldown),
			slog.Duration("latency", latency),
		)
		return
	}

	slog.Debug("proxy outcome recorded",
		slog.String("proxy", e.Address),
		slog.Bool("success", success),
		slog.Float64("success_rate", rate),
		slog.Duration("latency", latency),
	)
}

// Demote forces an endpoint straight into cooldown, regardless of its
// success rate. Used when the target blocks the endpoint outright.
func (m *Manager) Demote(e *Endpoint) {
	if e == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.cooldownUntil = m.now().Add(m.cooldown)
	slog.Warn("proxy endpoint force-demoted",
		slog.String("proxy", e.Address),
		slog.Duration("cooldown", m.cooldown),
	)
}

// Metrics returns a health snapshot for every endpoint.
func (m *Manager) Metrics() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.endpoints))
	for _, e := range m.endpoints {
		out = append(out, Snapshot{
			Address:       e.Address,
			SuccessCount:  e.successCount,
			FailureCount:  e.failureCount,
			SuccessRate:   e.successRate(),
			CooldownUntil: e.cooldownUntil,
		})
	}
	return out
}
