package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter names used across the order lifecycle.
const (
	OrdersCreated     = "orders_created"
	OrdersConfirmed   = "orders_confirmed"
	OrdersRescheduled = "orders_rescheduled"
	OrdersCancelled   = "orders_cancelled"
	OrdersClosed      = "orders_closed"
	WebhookRowsOK     = "webhook_rows_resolved"
	WebhookRowsFailed = "webhook_rows_failed"
	DocumentsEmitted  = "documents_emitted"
)

// Metrics is an in-process metrics collector for lifecycle counters, gauges
// and health checks.
type Metrics struct {
	mu           sync.RWMutex
	counters     map[string]*int64
	gauges       map[string]*int64
	healthChecks map[string]*int64
	startTime    time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:     make(map[string]*int64),
		gauges:       make(map[string]*int64),
		healthChecks: make(map[string]*int64),
		startTime:    time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	atomic.AddInt64(m.slot(m.counters, name), value)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.slot(m.gauges, name), value)
}

// SetHealthCheck records a named health status
func (m *Metrics) SetHealthCheck(name string, healthy bool) {
	var v int64
	if healthy {
		v = 1
	}
	atomic.StoreInt64(m.slot(m.healthChecks, name), v)
}

func (m *Metrics) slot(table map[string]*int64, name string) *int64 {
	m.mu.RLock()
	p, exists := table[name]
	m.mu.RUnlock()
	if exists {
		return p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Check again to avoid race conditions
	if p, exists = table[name]; !exists {
		var v int64
		p = &v
		table[name] = p
	}
	return p
}

// GetAllMetrics returns a snapshot of every counter and gauge plus uptime
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, p := range m.counters {
		counters[name] = atomic.LoadInt64(p)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, p := range m.gauges {
		gauges[name] = atomic.LoadInt64(p)
	}

	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"counters":       counters,
		"gauges":         gauges,
	}
}

// GetHealthChecks returns the current health status per component
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checks := make(map[string]bool, len(m.healthChecks))
	for name, p := range m.healthChecks {
		checks[name] = atomic.LoadInt64(p) == 1
	}
	return checks
}
