// Package window models an origin shared by several windows. The origin owns
// the persistent area and the cookie jar; each window owns a session area and
// receives storage events when another window changes the persistent area.
package window

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-logr/logr"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Origin is the set of storage areas shared by every window opened on it.
type Origin struct {
	local   types.Area
	cookies types.CookieStore
	log     logr.Logger
	windows mapset.Set[*Window]
}

// NewOrigin creates an origin over the shared persistent area and cookie
// store. Either may be nil, in which case that backend is unavailable to
// every window.
func NewOrigin(local types.Area, cookies types.CookieStore, log logr.Logger) *Origin {
	return &Origin{
		local:   local,
		cookies: cookies,
		log:     log,
		windows: mapset.NewSet[*Window](),
	}
}

// Open creates a new window on the origin.
func (o *Origin) Open() *Window {
	w := newWindow(o)
	o.windows.Add(w)
	o.log.V(1).Info("window opened", "window", w.id, "windows", o.windows.Cardinality())
	return w
}

// Windows returns the number of open windows.
func (o *Origin) Windows() int {
	return o.windows.Cardinality()
}

// Close closes every open window.
func (o *Origin) Close() {
	for _, w := range o.windows.ToSlice() {
		w.Close()
	}
}

// broadcast queues ev on every open window except the one that made the
// change.
func (o *Origin) broadcast(from *Window, ev types.StorageEvent) {
	for _, w := range o.windows.ToSlice() {
		if w == from {
			continue
		}
		w.enqueue(ev)
	}
}

func (o *Origin) detach(w *Window) {
	o.windows.Remove(w)
}
