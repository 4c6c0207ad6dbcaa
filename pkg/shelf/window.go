package shelf

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/mesh-intelligence/shelf/internal/adapter"
	"github.com/mesh-intelligence/shelf/internal/binding"
	"github.com/mesh-intelligence/shelf/internal/codec"
	"github.com/mesh-intelligence/shelf/internal/poller"
	"github.com/mesh-intelligence/shelf/internal/window"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Window is one execution context on a Shelf.
type Window struct {
	win     *window.Window
	poller  *poller.Poller
	adapter *adapter.Adapter
	log     logr.Logger
}

// ID returns the window identifier.
func (w *Window) ID() string { return w.win.ID() }

// Get reads key once and returns its typed value, or opts.Default when the
// key is absent or cannot be read.
func (w *Window) Get(key string, opts types.Options) types.Value {
	raw, err := w.adapter.Read(opts.GetBackend(), key)
	if err != nil || !raw.Present {
		return opts.Default
	}
	return codec.DecodeRaw(raw)
}

// Set writes v under key, or removes the key when v is Absent. Bindings on
// the key observe the write as an external change.
func (w *Window) Set(key string, v types.Value, opts types.Options) error {
	if w.win.Closed() {
		return types.ErrWindowClosed
	}
	backend := opts.GetBackend()
	if v.IsAbsent() {
		return w.adapter.Remove(backend, key, opts.Cookie)
	}
	text, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return w.adapter.Write(backend, key, text, opts.Cookie)
}

// Has reports whether backend holds a value for key.
func (w *Window) Has(key string, backend types.Backend) bool {
	raw, err := w.adapter.Read(backend, key)
	return err == nil && raw.Present
}

// Clear removes every key of backend. Clearing cookies is a no-op.
func (w *Window) Clear(backend types.Backend) error {
	if w.win.Closed() {
		return types.ErrWindowClosed
	}
	return w.adapter.ClearAll(backend)
}

// Keys lists the keys held by a persistent or session backend.
func (w *Window) Keys(backend types.Backend) ([]string, error) {
	return w.adapter.Keys(backend)
}

// Raw returns the text stored for key without decoding it.
func (w *Window) Raw(key string, backend types.Backend) (types.Raw, error) {
	return w.adapter.Read(backend, key)
}

// Bind returns a live binding on key. Persistent bindings with CrossTabSync
// follow other windows' writes through storage events; every other binding
// is checked on each poller tick. The caller must Release the binding.
func (w *Window) Bind(key string, opts types.Options) types.Binding {
	return binding.New(key, opts, binding.Deps{
		Adapter: w.adapter,
		Poller:  w.poller,
		Events:  w.win,
		Log:     w.log.WithName("binding"),
	})
}

// Local returns the persistent area as seen by this window.
func (w *Window) Local() types.Area { return w.win.Local() }

// Session returns the window's session area.
func (w *Window) Session() types.Area { return w.win.Session() }

// Cookies returns the shared cookie store.
func (w *Window) Cookies() types.CookieStore { return w.win.Cookies() }

// Close closes the window. Bindings created from it keep their last values
// but receive no further storage events.
func (w *Window) Close() { w.win.Close() }
