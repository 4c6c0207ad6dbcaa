// Package adapter gives uniform read, write, remove and clear access to the
// persistent, session and cookie backends of an environment. Every failure
// is contained: operations return errors wrapping types.ErrOperationFailed
// and never panic.
package adapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Env supplies the storage areas of one execution context. Any accessor may
// return nil when that backend is unavailable.
type Env interface {
	Local() types.Area
	Session() types.Area
	Cookies() types.CookieStore
}

// Adapter performs backend operations against an Env.
type Adapter struct {
	env Env
	log logr.Logger
	now func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock sets the clock used for cookie expiry dates.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates an adapter over env. A nil env makes every backend
// unavailable.
func New(env Env, log logr.Logger, opts ...Option) *Adapter {
	a := &Adapter{env: env, log: log, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Read returns the raw value stored for key.
func (a *Adapter) Read(backend types.Backend, key string) (raw types.Raw, err error) {
	defer a.contain("read", backend, key, types.ErrAccessDenied, &err)

	if backend == types.Cookie {
		jar, err := a.cookies()
		if err != nil {
			return types.RawAbsent, a.fail("read", backend, key, types.ErrBackendUnavailable, err)
		}
		s, err := jar.Cookie()
		if err != nil {
			return types.RawAbsent, a.fail("read", backend, key, types.ErrAccessDenied, err)
		}
		return ReadCookie(s, key), nil
	}

	area, err := a.area(backend)
	if err != nil {
		return types.RawAbsent, a.fail("read", backend, key, types.ErrBackendUnavailable, err)
	}
	v, ok, err := area.GetItem(key)
	if err != nil {
		return types.RawAbsent, a.fail("read", backend, key, types.ErrAccessDenied, err)
	}
	if !ok {
		return types.RawAbsent, nil
	}
	return types.RawText(v), nil
}

// Write stores text under key. Cookie writes use opts; other backends
// ignore it.
func (a *Adapter) Write(backend types.Backend, key, text string, opts types.CookieOptions) (err error) {
	defer a.contain("write", backend, key, types.ErrWriteFailed, &err)

	if backend == types.Cookie {
		jar, err := a.cookies()
		if err != nil {
			return a.fail("write", backend, key, types.ErrBackendUnavailable, err)
		}
		if err := jar.SetCookie(BuildCookie(key, text, opts, a.now())); err != nil {
			return a.fail("write", backend, key, types.ErrWriteFailed, err)
		}
		return nil
	}

	area, err := a.area(backend)
	if err != nil {
		return a.fail("write", backend, key, types.ErrBackendUnavailable, err)
	}
	if err := area.SetItem(key, text); err != nil {
		return a.fail("write", backend, key, types.ErrWriteFailed, err)
	}
	return nil
}

// Remove deletes key. A cookie is removed under the path and domain of
// opts.
func (a *Adapter) Remove(backend types.Backend, key string, opts types.CookieOptions) (err error) {
	defer a.contain("remove", backend, key, types.ErrWriteFailed, &err)

	if backend == types.Cookie {
		jar, err := a.cookies()
		if err != nil {
			return a.fail("remove", backend, key, types.ErrBackendUnavailable, err)
		}
		if err := jar.SetCookie(BuildRemoval(key, opts)); err != nil {
			return a.fail("remove", backend, key, types.ErrWriteFailed, err)
		}
		return nil
	}

	area, err := a.area(backend)
	if err != nil {
		return a.fail("remove", backend, key, types.ErrBackendUnavailable, err)
	}
	if err := area.RemoveItem(key); err != nil {
		return a.fail("remove", backend, key, types.ErrWriteFailed, err)
	}
	return nil
}

// ClearAll removes every key of backend. Cookies cannot be enumerated with
// their attributes, so clearing the cookie backend logs a warning and does
// nothing.
func (a *Adapter) ClearAll(backend types.Backend) (err error) {
	defer a.contain("clear", backend, "", types.ErrAccessDenied, &err)

	if backend == types.Cookie {
		a.log.Info("clearing all cookies is not supported; remove cookies individually")
		return nil
	}
	area, err := a.area(backend)
	if err != nil {
		return a.fail("clear", backend, "", types.ErrBackendUnavailable, err)
	}
	if err := area.Clear(); err != nil {
		return a.fail("clear", backend, "", types.ErrAccessDenied, err)
	}
	return nil
}

// Keys lists the keys of a persistent or session backend.
func (a *Adapter) Keys(backend types.Backend) (keys []string, err error) {
	defer a.contain("keys", backend, "", types.ErrAccessDenied, &err)

	area, err := a.area(backend)
	if err != nil {
		return nil, a.fail("keys", backend, "", types.ErrBackendUnavailable, err)
	}
	keys, err = area.Keys()
	if err != nil {
		return nil, a.fail("keys", backend, "", types.ErrAccessDenied, err)
	}
	return keys, nil
}

var errNoEnv = errors.New("no storage environment")

func (a *Adapter) area(backend types.Backend) (types.Area, error) {
	if a.env == nil {
		return nil, errNoEnv
	}
	var area types.Area
	switch backend {
	case types.Persistent:
		area = a.env.Local()
	case types.Session:
		area = a.env.Session()
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownBackend, backend)
	}
	if area == nil {
		return nil, fmt.Errorf("%s area not available", backend)
	}
	return area, nil
}

func (a *Adapter) cookies() (types.CookieStore, error) {
	if a.env == nil {
		return nil, errNoEnv
	}
	jar := a.env.Cookies()
	if jar == nil {
		return nil, errors.New("cookie store not available")
	}
	return jar, nil
}

// fail logs the failure and returns an error wrapping ErrOperationFailed and
// kind.
func (a *Adapter) fail(op string, backend types.Backend, key string, kind, cause error) error {
	a.log.Error(cause, "storage operation failed", "op", op, "backend", backend, "key", key)
	return fmt.Errorf("%w: %w: %s %s %q: %w", types.ErrOperationFailed, kind, op, backend, key, cause)
}

// contain converts a panic raised by an area into an error of the given
// kind.
func (a *Adapter) contain(op string, backend types.Backend, key string, kind error, err *error) {
	if r := recover(); r != nil {
		*err = a.fail(op, backend, key, kind, fmt.Errorf("panic: %v", r))
	}
}
