package window

import (
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/shelf/internal/storage"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Window is one execution context on an origin, the equivalent of a browser
// tab. Storage events are delivered asynchronously, in the order the changes
// were made, on a goroutine owned by the window.
type Window struct {
	id      string
	origin  *Origin
	log     logr.Logger
	local   *sharedArea
	session *storage.MemoryArea

	mu        sync.Mutex
	listeners map[uint64]func(types.StorageEvent)
	nextID    uint64
	pending   []types.StorageEvent
	closed    bool

	signal chan struct{}
	done   chan struct{}
}

func newWindow(o *Origin) *Window {
	w := &Window{
		id:        uuid.Must(uuid.NewV7()).String(),
		origin:    o,
		session:   storage.NewMemoryArea(),
		listeners: make(map[uint64]func(types.StorageEvent)),
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	w.log = o.log.WithValues("window", w.id)
	if o.local != nil {
		w.local = &sharedArea{area: o.local, w: w}
	}
	go w.deliver()
	return w
}

// ID returns the window identifier.
func (w *Window) ID() string { return w.id }

// Local returns the persistent area as seen by this window. Writes through
// it raise storage events on the origin's other windows. Nil when the origin
// has no persistent area.
func (w *Window) Local() types.Area {
	if w.local == nil {
		return nil
	}
	return w.local
}

// Session returns the window's private session area.
func (w *Window) Session() types.Area { return w.session }

// Cookies returns the origin's cookie store, or nil.
func (w *Window) Cookies() types.CookieStore { return w.origin.cookies }

// Listen subscribes fn to storage events. Listeners run on the window's
// delivery goroutine. The returned function cancels the subscription; it is
// safe to call more than once.
func (w *Window) Listen(fn func(types.StorageEvent)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

// Closed reports whether Close has been called.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close stops event delivery and detaches the window from its origin. Events
// still queued are dropped. Idempotent.
func (w *Window) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.pending = nil
	w.listeners = make(map[uint64]func(types.StorageEvent))
	w.mu.Unlock()

	close(w.done)
	w.origin.detach(w)
	w.log.V(1).Info("window closed")
}

func (w *Window) enqueue(ev types.StorageEvent) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = append(w.pending, ev)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *Window) deliver() {
	for {
		select {
		case <-w.done:
			return
		case <-w.signal:
		}
		for {
			w.mu.Lock()
			if w.closed || len(w.pending) == 0 {
				w.mu.Unlock()
				break
			}
			ev := w.pending[0]
			w.pending = w.pending[1:]
			fns := make([]func(types.StorageEvent), 0, len(w.listeners))
			for _, fn := range w.listeners {
				fns = append(fns, fn)
			}
			w.mu.Unlock()

			for _, fn := range fns {
				w.dispatch(fn, ev)
			}
		}
	}
}

func (w *Window) dispatch(fn func(types.StorageEvent), ev types.StorageEvent) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error(nil, "storage event listener panicked", "key", ev.Key, "panic", r)
		}
	}()
	fn(ev)
}
