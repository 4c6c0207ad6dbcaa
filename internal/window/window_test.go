package window

import (
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/storage"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// recorder collects storage events delivered to a window.
type recorder struct {
	mu     sync.Mutex
	events []types.StorageEvent
}

func (r *recorder) listen(ev types.StorageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []types.StorageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.StorageEvent(nil), r.events...)
}

func newTestOrigin() *Origin {
	return NewOrigin(storage.NewMemoryArea(), storage.NewCookieJar(nil), logr.Discard())
}

func TestWindow_WritesReachOtherWindowsOnly(t *testing.T) {
	o := newTestOrigin()
	a, b := o.Open(), o.Open()
	defer o.Close()

	var fromA, fromB recorder
	a.Listen(fromA.listen)
	b.Listen(fromB.listen)

	require.NoError(t, a.Local().SetItem("k", "1"))
	require.NoError(t, a.Local().SetItem("k", "2"))
	require.NoError(t, a.Local().RemoveItem("k"))

	require.Eventually(t, func() bool { return len(fromB.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	events := fromB.snapshot()
	assert.Equal(t, types.StorageEvent{Key: "k", OldValue: types.RawAbsent, NewValue: types.RawText("1"), Area: types.Persistent, Window: a.ID()}, events[0])
	assert.Equal(t, types.RawText("1"), events[1].OldValue)
	assert.Equal(t, types.RawText("2"), events[1].NewValue)
	assert.Equal(t, types.RawAbsent, events[2].NewValue)

	assert.Empty(t, fromA.snapshot(), "the writing window gets no event")
}

func TestWindow_UnchangedWriteRaisesNoEvent(t *testing.T) {
	o := newTestOrigin()
	a, b := o.Open(), o.Open()
	defer o.Close()

	var rec recorder
	b.Listen(rec.listen)

	require.NoError(t, a.Local().SetItem("k", "same"))
	require.NoError(t, a.Local().SetItem("k", "same"))
	require.NoError(t, a.Local().RemoveItem("missing"))
	require.NoError(t, a.Local().SetItem("marker", "x"))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	events := rec.snapshot()
	assert.Equal(t, "k", events[0].Key)
	assert.Equal(t, "marker", events[1].Key)
}

func TestWindow_ClearRaisesEmptyKeyEvent(t *testing.T) {
	o := newTestOrigin()
	a, b := o.Open(), o.Open()
	defer o.Close()

	var rec, self recorder
	b.Listen(rec.listen)
	a.Listen(self.listen)

	require.NoError(t, a.Local().Clear(), "clearing an empty area raises nothing")
	require.NoError(t, a.Local().SetItem("k", "v"))
	require.NoError(t, a.Local().Clear())

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "", rec.snapshot()[1].Key)

	require.Eventually(t, func() bool { return len(self.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, types.StorageEvent{Area: types.Persistent, Window: a.ID()}, self.snapshot()[0],
		"the clearing window sees only the clear, not its own write")
}

func TestWindow_SessionIsPrivate(t *testing.T) {
	o := newTestOrigin()
	a, b := o.Open(), o.Open()
	defer o.Close()

	require.NoError(t, a.Session().SetItem("k", "a"))
	_, ok, err := b.Session().GetItem("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Local().SetItem("shared", "yes"))
	v, ok, err := b.Local().GetItem("shared")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "yes", v)

	assert.Same(t, a.Cookies(), b.Cookies())
}

func TestWindow_CloseStopsDelivery(t *testing.T) {
	o := newTestOrigin()
	a, b := o.Open(), o.Open()
	defer o.Close()
	assert.Equal(t, 2, o.Windows())

	var rec recorder
	b.Listen(rec.listen)
	b.Close()
	b.Close()
	assert.True(t, b.Closed())
	assert.Equal(t, 1, o.Windows())

	require.NoError(t, a.Local().SetItem("k", "v"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestWindow_CancelledListenerStops(t *testing.T) {
	o := newTestOrigin()
	a, b := o.Open(), o.Open()
	defer o.Close()

	var kept, dropped recorder
	b.Listen(kept.listen)
	cancel := b.Listen(dropped.listen)
	cancel()
	cancel()

	require.NoError(t, a.Local().SetItem("k", "v"))
	require.Eventually(t, func() bool { return len(kept.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, dropped.snapshot())
}

func TestWindow_PanickingListenerDoesNotStopDelivery(t *testing.T) {
	o := newTestOrigin()
	a, b := o.Open(), o.Open()
	defer o.Close()

	var rec recorder
	b.Listen(func(types.StorageEvent) { panic("boom") })
	b.Listen(rec.listen)

	require.NoError(t, a.Local().SetItem("k", "1"))
	require.NoError(t, a.Local().SetItem("k", "2"))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestOrigin_WithoutPersistentArea(t *testing.T) {
	o := NewOrigin(nil, nil, logr.Discard())
	w := o.Open()
	defer w.Close()
	assert.Nil(t, w.Local())
	assert.Nil(t, w.Cookies())
	assert.NotNil(t, w.Session())
}
