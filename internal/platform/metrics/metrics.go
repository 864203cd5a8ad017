package metrics

import (
	"maps"
	"net/http"
	"sync"
	"time"
)

// Collector tracks HTTP traffic and payroll domain events. Payroll events
// are counted by name, e.g. payslip_issued or payroll.run.lock.
type Collector struct {
	mu       sync.Mutex
	requests uint64
	errors   uint64
	limited  uint64
	totalMs  uint64
	maxMs    uint64
	byClass  map[string]uint64
	events   map[string]uint64
}

func New() *Collector {
	return &Collector{byClass: make(map[string]uint64), events: make(map[string]uint64)}
}

// Record adds one finished request.
func (c *Collector) Record(status int, duration time.Duration) {
	ms := uint64(max(duration.Milliseconds(), 0))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	c.totalMs += ms
	c.maxMs = max(c.maxMs, ms)
	c.byClass[statusClass(status)]++
	switch {
	case status >= http.StatusInternalServerError:
		c.errors++
	case status == http.StatusTooManyRequests:
		c.limited++
	}
}

func (c *Collector) Count(event string) {
	c.mu.Lock()
	c.events[event]++
	c.mu.Unlock()
}

func (c *Collector) Snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	avg := float64(0)
	if c.requests > 0 {
		avg = float64(c.totalMs) / float64(c.requests)
	}
	return map[string]any{
		"requestsTotal":    c.requests,
		"errorsTotal":      c.errors,
		"rateLimitedTotal": c.limited,
		"avgDurationMs":    avg,
		"maxDurationMs":    c.maxMs,
		"totalDurationMs":  c.totalMs,
		"responsesByClass": maps.Clone(c.byClass),
		"payrollEvents":    maps.Clone(c.events),
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
