// Package poller runs registered change checks on a shared interval. A
// single timer serves every registration; it runs only while at least one
// registration exists.
package poller

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
)

// DefaultInterval is the tick interval used when none is given.
const DefaultInterval = 2 * time.Second

// Poller is the process-wide change poller. It is idle with no
// registrations and active (one timer armed) otherwise.
type Poller struct {
	interval time.Duration
	log      logr.Logger

	mu       sync.Mutex // protects regs, timer, gen, starts, shutdown
	regs     []*Registration
	timer    *time.Timer
	gen      uint64 // bumped on every start so stale timer callbacks exit
	starts   int
	shutdown bool

	tickMu sync.Mutex // serializes ticks
}

// Registration is one closure run on every tick until released.
type Registration struct {
	p        *Poller
	fn       func()
	released atomic.Bool
}

// New creates an idle poller. A non-positive interval uses DefaultInterval.
func New(interval time.Duration, log logr.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{interval: interval, log: log}
}

// Interval returns the tick interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// Register adds fn to the tick set and starts the timer if it was idle.
// After Shutdown it returns an already released registration.
func (p *Poller) Register(fn func()) *Registration {
	r := &Registration{p: p, fn: fn}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		r.released.Store(true)
		return r
	}
	p.regs = append(p.regs, r)
	if len(p.regs) == 1 {
		p.startLocked()
	}
	return r
}

// Release removes the registration and stops the timer when it was the last
// one. It takes effect before returning: a tick already in progress skips
// the closure if it has not reached it yet. Idempotent.
func (r *Registration) Release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := slices.Index(p.regs, r); i >= 0 {
		p.regs = slices.Delete(p.regs, i, i+1)
	}
	if len(p.regs) == 0 {
		p.stopLocked()
	}
}

// Released reports whether Release has been called.
func (r *Registration) Released() bool { return r.released.Load() }

// Tick runs one cycle synchronously: every registration present when the
// tick starts runs once, in registration order, unless released before its
// turn. A panicking closure is logged and the tick continues. Closures may
// register and release but must not call Tick.
func (p *Poller) Tick() {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	p.mu.Lock()
	snapshot := slices.Clone(p.regs)
	p.mu.Unlock()

	p.log.V(2).Info("tick", "registrations", len(snapshot))
	for _, r := range snapshot {
		if r.released.Load() {
			continue
		}
		p.run(r)
	}
}

func (p *Poller) run(r *Registration) {
	defer func() {
		if v := recover(); v != nil {
			p.log.Error(nil, "change check panicked", "panic", v)
		}
	}()
	r.fn()
}

// Active reports whether the timer is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

// Len returns the number of live registrations.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.regs)
}

// Starts returns how many times the poller went from idle to active.
func (p *Poller) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}

// Shutdown releases every registration and stops the timer. Later calls to
// Register return released registrations.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.regs {
		r.released.Store(true)
	}
	p.regs = nil
	p.shutdown = true
	p.stopLocked()
}

// startLocked arms the timer. The caller must hold p.mu.
func (p *Poller) startLocked() {
	if p.timer != nil {
		return
	}
	p.gen++
	p.starts++
	gen := p.gen
	p.timer = time.AfterFunc(p.interval, func() { p.fire(gen) })
	p.log.V(1).Info("poller started", "interval", p.interval)
}

// stopLocked disarms the timer. The caller must hold p.mu.
func (p *Poller) stopLocked() {
	if p.timer == nil {
		return
	}
	p.timer.Stop()
	p.timer = nil
	p.log.V(1).Info("poller stopped")
}

func (p *Poller) fire(gen uint64) {
	if !p.current(gen) {
		return
	}
	p.Tick()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil && p.gen == gen {
		p.timer.Reset(p.interval)
	}
}

func (p *Poller) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil && p.gen == gen
}
