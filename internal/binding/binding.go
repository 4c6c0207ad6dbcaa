// Package binding implements live (key, backend) subscriptions. A binding
// learns about changes it did not make either by polling the backend on the
// shared poller's tick or, for persistent keys synced across windows, from
// storage events.
package binding

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/mesh-intelligence/shelf/internal/adapter"
	"github.com/mesh-intelligence/shelf/internal/codec"
	"github.com/mesh-intelligence/shelf/internal/poller"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// EventSource delivers storage events raised by other windows.
type EventSource interface {
	Listen(fn func(types.StorageEvent)) (cancel func())
}

// Deps are the services a binding runs against.
type Deps struct {
	Adapter *adapter.Adapter
	Poller  *poller.Poller
	Events  EventSource // nil when the environment raises no storage events
	Log     logr.Logger
}

// Binding is a live view of one key in one backend.
type Binding struct {
	key      string
	backend  types.Backend
	opts     types.Options
	strategy types.Strategy
	adapter  *adapter.Adapter
	log      logr.Logger

	mu       sync.Mutex // guards read-compare-update and write-update
	last     types.Raw
	value    types.Value
	released bool
	reg      *poller.Registration
	cancel   func()
}

// New binds key with opts. The current value is read immediately; a read
// failure leaves the binding absent, exposing the default.
func New(key string, opts types.Options, d Deps) *Binding {
	b := &Binding{
		key:     key,
		backend: opts.GetBackend(),
		opts:    opts,
		adapter: d.Adapter,
	}
	b.log = d.Log.WithValues("key", key, "backend", b.backend)

	if raw, err := b.adapter.Read(b.backend, key); err == nil {
		b.last = raw
		b.value = codec.DecodeRaw(raw)
	}

	if b.backend == types.Persistent && opts.CrossTabSync && d.Events != nil {
		b.strategy = types.StrategyPush
		b.cancel = d.Events.Listen(b.onEvent)
	} else {
		b.strategy = types.StrategyPoll
		b.reg = d.Poller.Register(func() { b.Check() })
	}
	b.log.V(1).Info("bound", "strategy", b.strategy, "present", b.last.Present)
	return b
}

// Key returns the bound key.
func (b *Binding) Key() string { return b.key }

// Backend returns the bound backend.
func (b *Binding) Backend() types.Backend { return b.backend }

// Strategy returns how external changes are detected.
func (b *Binding) Strategy() types.Strategy { return b.strategy }

// Value returns the decoded value, or the default while absent.
func (b *Binding) Value() types.Value {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

// Has reports whether the key was present at the last observation.
func (b *Binding) Has() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last.Present
}

// Set writes v, or removes the key when v is Absent. The last observed raw
// value is updated before the lock is released, so the next check does not
// mistake this write for an external one.
func (b *Binding) Set(v types.Value) error {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return types.ErrReleased
	}

	if v.IsAbsent() {
		if err := b.adapter.Remove(b.backend, b.key, b.opts.Cookie); err != nil {
			b.mu.Unlock()
			return err
		}
		b.last = types.RawAbsent
		b.value = types.Absent
	} else {
		text, err := codec.Encode(v)
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("encode %q: %w", b.key, err)
		}
		if err := b.adapter.Write(b.backend, b.key, text, b.opts.Cookie); err != nil {
			b.mu.Unlock()
			return err
		}
		b.last = types.RawText(text)
		b.value = v
	}
	if b.backend == types.Cookie {
		// The jar may drop the cookie outright (an expiry in the past) or
		// another cookie of the same name may shadow it.
		b.reconcileLocked()
	}
	published := b.value
	b.mu.Unlock()

	b.notify(published)
	return nil
}

// Check re-reads the key and publishes the new value when the raw text
// differs from the last observation. A read failure keeps the last known
// value. It reports whether a value was published.
func (b *Binding) Check() bool {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return false
	}
	raw, err := b.adapter.Read(b.backend, b.key)
	if err != nil || raw.Equal(b.last) {
		b.mu.Unlock()
		return false
	}
	b.last = raw
	b.value = codec.DecodeRaw(raw)
	v := b.value
	b.mu.Unlock()

	b.log.V(2).Info("external change", "present", raw.Present)
	b.notify(v)
	return true
}

// Release stops change detection. The poller registration is removed before
// Release returns. Idempotent.
func (b *Binding) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	reg, cancel := b.reg, b.cancel
	b.mu.Unlock()

	if reg != nil {
		reg.Release()
	}
	if cancel != nil {
		cancel()
	}
	b.log.V(1).Info("released")
}

// onEvent applies a storage event from another window. The event carries
// the new value, so the backend is not re-read. An empty key means the
// area was cleared.
func (b *Binding) onEvent(ev types.StorageEvent) {
	if ev.Area != types.Persistent || (ev.Key != "" && ev.Key != b.key) {
		return
	}
	raw := ev.NewValue
	if ev.Key == "" {
		raw = types.RawAbsent
	}

	b.mu.Lock()
	if b.released || raw.Equal(b.last) {
		b.mu.Unlock()
		return
	}
	b.last = raw
	b.value = codec.DecodeRaw(raw)
	v := b.value
	b.mu.Unlock()

	b.log.V(2).Info("storage event", "from", ev.Window, "present", raw.Present)
	b.notify(v)
}

func (b *Binding) reconcileLocked() {
	raw, err := b.adapter.Read(b.backend, b.key)
	if err != nil || raw.Equal(b.last) {
		return
	}
	b.last = raw
	b.value = codec.DecodeRaw(raw)
}

func (b *Binding) currentLocked() types.Value {
	if !b.last.Present {
		return b.opts.Default
	}
	return b.value
}

func (b *Binding) notify(v types.Value) {
	if b.opts.OnChange == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error(nil, "change subscriber panicked", "panic", r)
		}
	}()
	b.opts.OnChange(v)
}

var _ types.Binding = (*Binding)(nil)
