// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package resource implements ResourceManager: the component agents ask
// for permission to do CPU/memory-heavy work, so the process as a whole
// stays inside its configured budget instead of every agent racing
// ahead independently.
package resource

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coderrors "github.com/coderef-dev/coderef/internal/errors"
)

// IOClass is a coarse label a lease request uses to describe the kind
// of work it expects to do, for future policy differentiation (e.g.
// throttling disk-heavy leases differently from pure-CPU ones).
type IOClass string

const (
	IOClassCPU     IOClass = "cpu"
	IOClassDisk    IOClass = "disk"
	IOClassNetwork IOClass = "network"
)

// Request describes the resources a caller wants before starting a
// unit of work.
type Request struct {
	EstimatedMemoryBytes int64
	CPUShare             float64 // fraction of one core, e.g. 0.25
	IOClass              IOClass
	// Priority at or above priorityEssential is still admitted during an
	// emergency; lower priorities are refused. Granted leases are never
	// revoked, and queued waiters are considered in arrival order
	// whatever their Priority.
	Priority int
}

// Lease is a granted Request. Release must be called exactly once when
// the work completes, successfully or not.
type Lease struct {
	ID       string
	Request  Request
	mgr      *Manager
	released sync.Once
}

// Release returns the lease's declared budget to the pool and wakes any
// queued waiters.
func (l *Lease) Release() {
	l.released.Do(func() {
		l.mgr.release(l)
	})
}

// Config bounds what ResourceManager considers available.
type Config struct {
	// MemoryCeilingBytes is the configured ceiling; grants are capped at
	// MemoryGrantFraction of it (default 60%).
	MemoryCeilingBytes int64
	MemoryGrantFraction float64
	// CPUCores caps CPU share grants; default GOMAXPROCS.
	CPUCores int
	// CPUGrantFraction caps the sum of granted leases' CPUShare at this
	// fraction of CPUCores (default 80%); measured CPU load is not
	// consulted when granting.
	CPUGrantFraction float64
	// RecheckInterval is how often a queued waiter is woken to retry.
	RecheckInterval time.Duration
	// EmergencyMemoryFraction and EmergencyCPUFraction trigger the
	// emergency path (default 85% / 95%).
	EmergencyMemoryFraction float64
	EmergencyCPUFraction    float64
	// EmergencySustain is how long the emergency condition must hold
	// before eviction fires (default 3s).
	EmergencySustain time.Duration
}

func (c Config) resolve() Config {
	if c.MemoryCeilingBytes <= 0 {
		c.MemoryCeilingBytes = 1 << 30 // 1 GiB
	}
	if c.MemoryGrantFraction <= 0 {
		c.MemoryGrantFraction = 0.60
	}
	if c.CPUCores <= 0 {
		c.CPUCores = runtime.GOMAXPROCS(0)
	}
	if c.CPUGrantFraction <= 0 {
		c.CPUGrantFraction = 0.80
	}
	if c.RecheckInterval <= 0 {
		c.RecheckInterval = 100 * time.Millisecond
	}
	if c.EmergencyMemoryFraction <= 0 {
		c.EmergencyMemoryFraction = 0.85
	}
	if c.EmergencyCPUFraction <= 0 {
		c.EmergencyCPUFraction = 0.95
	}
	if c.EmergencySustain <= 0 {
		c.EmergencySustain = 3 * time.Second
	}
	return c
}

// Evictor is anything ResourceManager can ask to shrink under memory
// pressure. No type in this repository implements it (ParseCache has
// SizeBytes but no EvictToFit) and nothing calls RegisterEvictor, so
// the emergency path has nothing to evict.
type Evictor interface {
	EvictToFit(targetBytes int64)
	SizeBytes() int64
}

// waiter is a queued Request blocked on capacity.
type waiter struct {
	req    Request
	grant  chan *Lease
	queued time.Time
}

// Manager is the ResourceManager (C8). The zero value is not usable;
// construct with New.
type Manager struct {
	cfg Config

	mu           sync.Mutex
	grantedMem   int64
	grantedCPU   float64
	leases       map[string]*Lease
	waiters      []*waiter
	seq          int64
	evictors     []Evictor
	emergencyAt  time.Time // when the emergency threshold was first crossed, zero if not crossed

	gaugeRSS     prometheus.Gauge
	gaugeCPU     prometheus.Gauge
	gaugeInFlight prometheus.Gauge
	gaugeQueued  prometheus.Gauge
	counterEvict prometheus.Counter
	counterDeny  prometheus.Counter

	stop   chan struct{}
	closed bool
}

// New constructs a Manager and starts its background recheck loop.
// Registerer may be nil to skip Prometheus registration (e.g. in tests
// that construct multiple Managers, which would otherwise collide on
// metric names).
func New(cfg Config, registerer prometheus.Registerer) *Manager {
	m := &Manager{
		cfg:    cfg.resolve(),
		leases: make(map[string]*Lease),
		stop:   make(chan struct{}),

		gaugeRSS:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "coderef_resource_rss_bytes", Help: "Process resident set size"}),
		gaugeCPU:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "coderef_resource_cpu_load", Help: "Rolling CPU utilization, 0-1 per core summed"}),
		gaugeInFlight: prometheus.NewGauge(prometheus.GaugeOpts{Name: "coderef_resource_leases_active", Help: "Currently granted leases"}),
		gaugeQueued:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "coderef_resource_leases_queued", Help: "Requests waiting for a lease"}),
		counterEvict:  prometheus.NewCounter(prometheus.CounterOpts{Name: "coderef_resource_evictions_total", Help: "Emergency cache evictions triggered"}),
		counterDeny:   prometheus.NewCounter(prometheus.CounterOpts{Name: "coderef_resource_denials_total", Help: "Non-essential requests refused under emergency pressure"}),
	}
	if registerer != nil {
		registerer.MustRegister(m.gaugeRSS, m.gaugeCPU, m.gaugeInFlight, m.gaugeQueued, m.counterEvict, m.counterDeny)
	}
	go m.loop()
	return m
}

// RegisterEvictor adds a cache (or other shrinkable consumer) to the
// emergency-eviction set.
func (m *Manager) RegisterEvictor(e Evictor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictors = append(m.evictors, e)
}

// Close stops the background recheck loop.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	close(m.stop)
}

// Request blocks until a lease is granted, the request is refused
// under emergency pressure, or ctx is cancelled.
func (m *Manager) Request(ctx context.Context, req Request) (*Lease, error) {
	m.mu.Lock()
	if m.withinBudget(req) && !m.inEmergency() {
		lease := m.grantLocked(req)
		m.mu.Unlock()
		return lease, nil
	}
	if m.inEmergency() && req.Priority < priorityEssential {
		m.counterDeny.Inc()
		m.mu.Unlock()
		return nil, coderrors.NewResourceError(coderrors.CodeResourceExhausted,
			"resource manager is in emergency mode", "memory or CPU utilization crossed the critical threshold",
			"retry later, or lower MAX_PARSER_AGENTS/MEMORY_LIMIT_MB", nil)
	}

	w := &waiter{req: req, grant: make(chan *Lease, 1), queued: time.Now()}
	m.waiters = append(m.waiters, w)
	m.gaugeQueued.Set(float64(len(m.waiters)))
	m.mu.Unlock()

	select {
	case lease := <-w.grant:
		return lease, nil
	case <-ctx.Done():
		m.removeWaiter(w)
		return nil, ctx.Err()
	}
}

// priorityEssential is the minimum Request.Priority that survives
// emergency refusal (schema reads, status checks).
const priorityEssential = 100

func (m *Manager) withinBudget(req Request) bool {
	memCap := int64(float64(m.cfg.MemoryCeilingBytes) * m.cfg.MemoryGrantFraction)
	cpuCap := float64(m.cfg.CPUCores) * m.cfg.CPUGrantFraction
	return m.grantedMem+req.EstimatedMemoryBytes <= memCap && m.grantedCPU+req.CPUShare <= cpuCap
}

func (m *Manager) inEmergency() bool {
	return !m.emergencyAt.IsZero() && time.Since(m.emergencyAt) >= m.cfg.EmergencySustain
}

func (m *Manager) grantLocked(req Request) *Lease {
	m.seq++
	lease := &Lease{ID: fmt.Sprintf("lease-%d", m.seq), Request: req, mgr: m}
	m.leases[lease.ID] = lease
	m.grantedMem += req.EstimatedMemoryBytes
	m.grantedCPU += req.CPUShare
	m.gaugeInFlight.Set(float64(len(m.leases)))
	return lease
}

func (m *Manager) release(l *Lease) {
	m.mu.Lock()
	if _, ok := m.leases[l.ID]; ok {
		delete(m.leases, l.ID)
		m.grantedMem -= l.Request.EstimatedMemoryBytes
		m.grantedCPU -= l.Request.CPUShare
		m.gaugeInFlight.Set(float64(len(m.leases)))
	}
	m.wakeWaitersLocked()
	m.mu.Unlock()
}

// wakeWaitersLocked grants as many queued waiters, in FIFO order, as
// current budget allows. Caller holds m.mu.
func (m *Manager) wakeWaitersLocked() {
	remaining := m.waiters[:0:0]
	for _, w := range m.waiters {
		if m.withinBudget(w.req) {
			w.grant <- m.grantLocked(w.req)
			continue
		}
		remaining = append(remaining, w)
	}
	m.waiters = remaining
	m.gaugeQueued.Set(float64(len(m.waiters)))
}

func (m *Manager) removeWaiter(target *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.waiters {
		if w == target {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			break
		}
	}
	m.gaugeQueued.Set(float64(len(m.waiters)))
}

// loop polls utilization and rechecks the wait list every
// RecheckInterval, and drives the emergency path.
func (m *Manager) loop() {
	ticker := time.NewTicker(m.cfg.RecheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Manager) tick() {
	rss := currentRSSBytes()
	cpuLoad := currentCPULoad(m.cfg.CPUCores)
	m.gaugeRSS.Set(float64(rss))
	m.gaugeCPU.Set(cpuLoad)

	m.mu.Lock()
	memFrac := float64(rss) / float64(m.cfg.MemoryCeilingBytes)
	cpuFrac := cpuLoad / float64(m.cfg.CPUCores)
	critical := memFrac >= m.cfg.EmergencyMemoryFraction || cpuFrac >= m.cfg.EmergencyCPUFraction
	if critical {
		if m.emergencyAt.IsZero() {
			m.emergencyAt = time.Now()
		}
	} else {
		m.emergencyAt = time.Time{}
	}
	sustained := m.inEmergency()
	evictors := append([]Evictor(nil), m.evictors...)
	m.wakeWaitersLocked()
	m.mu.Unlock()

	if sustained {
		m.runEmergencyEviction(evictors)
	}
}

func (m *Manager) runEmergencyEviction(evictors []Evictor) {
	for _, e := range evictors {
		target := e.SizeBytes() / 2
		e.EvictToFit(target)
		m.counterEvict.Inc()
	}
}

// currentRSSBytes reports the process's resident memory. On Linux this
// reads /proc/self/statm; elsewhere it falls back to the Go runtime's
// own heap accounting, which undercounts RSS but still tracks pressure
// directionally.
func currentRSSBytes() int64 {
	if data, err := os.ReadFile("/proc/self/statm"); err == nil {
		var sizePages, residentPages int64
		if n, _ := fmt.Sscanf(string(data), "%d %d", &sizePages, &residentPages); n == 2 {
			return residentPages * int64(os.Getpagesize())
		}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Sys)
}

// currentCPULoad estimates cores currently in use. On Linux it reads
// /proc/self/stat utime+stime deltas across calls; the heuristic
// fallback uses live goroutine count against GOMAXPROCS as a proxy for
// how saturated the scheduler is.
var lastCPUSample struct {
	sync.Mutex
	ticks int64
	at    time.Time
}

func currentCPULoad(cores int) float64 {
	if ticks, ok := readProcSelfStatTicks(); ok {
		lastCPUSample.Lock()
		defer lastCPUSample.Unlock()
		now := time.Now()
		if !lastCPUSample.at.IsZero() {
			elapsed := now.Sub(lastCPUSample.at).Seconds()
			if elapsed > 0 {
				clockTicksPerSec := 100.0 // typical Linux USER_HZ
				deltaSeconds := float64(ticks-lastCPUSample.ticks) / clockTicksPerSec
				lastCPUSample.ticks = ticks
				lastCPUSample.at = now
				load := deltaSeconds / elapsed
				if load < 0 {
					load = 0
				}
				return load
			}
		}
		lastCPUSample.ticks = ticks
		lastCPUSample.at = now
		return 0
	}
	// Fallback: treat goroutine count above a small multiple of cores as
	// proportional saturation.
	g := runtime.NumGoroutine()
	return float64(g) / float64(cores*4)
}

// readProcSelfStatTicks returns utime+stime (in clock ticks) from
// /proc/self/stat. comm (field 2) can itself contain spaces or
// parentheses, so the fields are split after the last ')' rather than
// by naive whitespace splitting of the whole line; from there utime is
// the 12th field and stime the 13th, per proc(5).
func readProcSelfStatTicks() (int64, bool) {
	data, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return 0, false
	}
	end := strings.LastIndexByte(string(data), ')')
	if end < 0 || end+2 >= len(data) {
		return 0, false
	}
	fields := strings.Fields(string(data[end+2:]))
	const utimeField, stimeField = 11, 12 // 0-indexed, counting from state(0)
	if len(fields) <= stimeField {
		return 0, false
	}
	utime, err1 := strconv.ParseInt(fields[utimeField], 10, 64)
	stime, err2 := strconv.ParseInt(fields[stimeField], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return utime + stime, true
}
