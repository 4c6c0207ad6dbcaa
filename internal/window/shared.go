package window

import "github.com/mesh-intelligence/shelf/pkg/types"

// sharedArea is a window's view of the origin's persistent area. Changes
// made through it are broadcast to the origin's other windows; writes that
// leave the stored value unchanged raise no event. A clear is delivered to
// every window, the clearing one included.
type sharedArea struct {
	area types.Area
	w    *Window
}

func (s *sharedArea) GetItem(key string) (string, bool, error) {
	return s.area.GetItem(key)
}

func (s *sharedArea) SetItem(key, value string) error {
	old := s.read(key)
	if err := s.area.SetItem(key, value); err != nil {
		return err
	}
	s.publish(key, old, types.RawText(value))
	return nil
}

func (s *sharedArea) RemoveItem(key string) error {
	old := s.read(key)
	if err := s.area.RemoveItem(key); err != nil {
		return err
	}
	s.publish(key, old, types.RawAbsent)
	return nil
}

func (s *sharedArea) Clear() error {
	keys, err := s.area.Keys()
	if err != nil {
		return err
	}
	if err := s.area.Clear(); err != nil {
		return err
	}
	if len(keys) > 0 {
		// A clear also reaches the clearing window, whose push bindings would
		// otherwise keep values the area no longer holds.
		ev := types.StorageEvent{Area: types.Persistent, Window: s.w.id}
		s.w.enqueue(ev)
		s.w.origin.broadcast(s.w, ev)
	}
	return nil
}

func (s *sharedArea) Keys() ([]string, error) {
	return s.area.Keys()
}

func (s *sharedArea) read(key string) types.Raw {
	v, ok, err := s.area.GetItem(key)
	if err != nil || !ok {
		return types.RawAbsent
	}
	return types.RawText(v)
}

func (s *sharedArea) publish(key string, old, cur types.Raw) {
	if old.Equal(cur) {
		return
	}
	s.w.origin.broadcast(s.w, types.StorageEvent{
		Key:      key,
		OldValue: old,
		NewValue: cur,
		Area:     types.Persistent,
		Window:   s.w.id,
	})
}

var _ types.Area = (*sharedArea)(nil)
