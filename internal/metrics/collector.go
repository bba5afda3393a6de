package metrics

import (
	"sync/atomic"
	"time"
)

// Collector counts dev server activity with no external dependencies
type Collector struct {
	compiles      int64
	compileErrors int64
	bytesServed   int64
	reloads       int64
	activeClients int64
	maxClients    int64
	startTime     time.Time
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	// Compilation
	Compiles      int64 `json:"compiles"`
	CompileErrors int64 `json:"compile_errors"`
	BytesServed   int64 `json:"bytes_served"`

	// Reload channel
	Reloads          int64 `json:"reloads"`
	ActiveClients    int64 `json:"active_clients"`
	MaxActiveClients int64 `json:"max_active_clients"`

	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// RecordCompile records a successful compile that produced size bytes
func (c *Collector) RecordCompile(size int) {
	atomic.AddInt64(&c.compiles, 1)
	atomic.AddInt64(&c.bytesServed, int64(size))
}

// RecordCompileError records a failed compile
func (c *Collector) RecordCompileError() {
	atomic.AddInt64(&c.compileErrors, 1)
}

// RecordReload records a reload broadcast
func (c *Collector) RecordReload() {
	atomic.AddInt64(&c.reloads, 1)
}

// ClientConnected records a new reload client
func (c *Collector) ClientConnected() {
	current := atomic.AddInt64(&c.activeClients, 1)

	// Update max concurrent if needed
	for {
		max := atomic.LoadInt64(&c.maxClients)
		if current <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.maxClients, max, current) {
			break
		}
	}
}

// ClientDisconnected records a reload client going away
func (c *Collector) ClientDisconnected() {
	atomic.AddInt64(&c.activeClients, -1)
}

// Snapshot returns the current counters
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Compiles:         atomic.LoadInt64(&c.compiles),
		CompileErrors:    atomic.LoadInt64(&c.compileErrors),
		BytesServed:      atomic.LoadInt64(&c.bytesServed),
		Reloads:          atomic.LoadInt64(&c.reloads),
		ActiveClients:    atomic.LoadInt64(&c.activeClients),
		MaxActiveClients: atomic.LoadInt64(&c.maxClients),
		StartTime:        c.startTime,
		Uptime:           time.Since(c.startTime),
	}
}

// ErrorRate returns the percentage of compiles that failed
func (c *Collector) ErrorRate() float64 {
	ok := atomic.LoadInt64(&c.compiles)
	failed := atomic.LoadInt64(&c.compileErrors)

	if ok+failed == 0 {
		return 0.0
	}
	return float64(failed) / float64(ok+failed) * 100.0
}
