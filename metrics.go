package authcore

import "sync/atomic"

// MetricID names one engine counter. The set is fixed at compile time so
// exporters can register observers for all of them up front.
type MetricID string

const (
	MetricLoginSuccess     MetricID = "login_success_total"
	MetricLoginFailure     MetricID = "login_failure_total"
	MetricLoginLocked      MetricID = "login_locked_total"
	MetricLoginRateLimited MetricID = "login_rate_limited_total"
	MetricMFAChallenges    MetricID = "login_mfa_challenge_total"
	MetricRefreshSuccess   MetricID = "refresh_success_total"
	MetricRefreshRejected  MetricID = "refresh_rejected_total"
	MetricTokensValidated  MetricID = "tokens_validated_total"
	MetricTokensRejected   MetricID = "tokens_rejected_total"
	MetricSessionsRevoked  MetricID = "sessions_revoked_total"
	MetricSessionsSwept    MetricID = "sessions_swept_total"
	MetricKeysRotated      MetricID = "keys_rotated_total"
)

// AllMetricIDs lists every counter the engine maintains, in a stable order.
func AllMetricIDs() []MetricID {
	return []MetricID{
		MetricLoginSuccess,
		MetricLoginFailure,
		MetricLoginLocked,
		MetricLoginRateLimited,
		MetricMFAChallenges,
		MetricRefreshSuccess,
		MetricRefreshRejected,
		MetricTokensValidated,
		MetricTokensRejected,
		MetricSessionsRevoked,
		MetricSessionsSwept,
		MetricKeysRotated,
	}
}

// MetricDef describes one counter for exporters.
type MetricDef struct {
	ID   MetricID
	Name string
	Help string
}

// CounterDefs returns exporter-facing definitions for every engine counter.
func CounterDefs() []MetricDef {
	help := map[MetricID]string{
		MetricLoginSuccess:     "Logins that produced a token pair.",
		MetricLoginFailure:     "Logins rejected for bad credentials.",
		MetricLoginLocked:      "Logins rejected by an account lockout.",
		MetricLoginRateLimited: "Logins rejected by the attempt window.",
		MetricMFAChallenges:    "Logins deferred to a second factor.",
		MetricRefreshSuccess:   "Refresh exchanges that produced a new pair.",
		MetricRefreshRejected:  "Refresh exchanges rejected.",
		MetricTokensValidated:  "Access tokens accepted by validation.",
		MetricTokensRejected:   "Access tokens rejected by validation.",
		MetricSessionsRevoked:  "Sessions removed by logout or admin lock.",
		MetricSessionsSwept:    "Expired sessions removed by the sweeper.",
		MetricKeysRotated:      "Signing key rotations performed.",
	}
	ids := AllMetricIDs()
	defs := make([]MetricDef, 0, len(ids))
	for _, id := range ids {
		defs = append(defs, MetricDef{ID: id, Name: "authcore_" + string(id), Help: help[id]})
	}
	return defs
}

// metrics holds lock-free counters. A nil *metrics (metrics disabled) is a
// valid no-op receiver.
type metrics struct {
	counters map[MetricID]*atomic.Uint64
}

func newMetrics() *metrics {
	m := &metrics{counters: make(map[MetricID]*atomic.Uint64)}
	for _, id := range AllMetricIDs() {
		m.counters[id] = &atomic.Uint64{}
	}
	return m
}

func (m *metrics) inc(id MetricID) {
	m.add(id, 1)
}

func (m *metrics) add(id MetricID, n uint64) {
	if m == nil {
		return
	}
	if c, ok := m.counters[id]; ok {
		c.Add(n)
	}
}

func (m *metrics) snapshot() map[MetricID]uint64 {
	if m == nil {
		return nil
	}
	out := make(map[MetricID]uint64, len(m.counters))
	for id, c := range m.counters {
		out[id] = c.Load()
	}
	return out
}

// Metrics returns a point-in-time copy of all engine counters, or nil when
// metrics are disabled.
func (e *Engine) Metrics() map[MetricID]uint64 {
	return e.metrics.snapshot()
}
