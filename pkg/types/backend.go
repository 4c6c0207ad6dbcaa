package types

import (
	"errors"
	"fmt"
	"strings"
)

// Backend identifies one of the three physical storage mechanisms.
type Backend string

// Storage backends.
const (
	Persistent Backend = "persistent"
	Session    Backend = "session"
	Cookie     Backend = "cookie"
)

// Backends lists every backend in a stable order.
var Backends = []Backend{Persistent, Session, Cookie}

// ErrUnknownBackend is returned when a backend name is not recognized.
var ErrUnknownBackend = errors.New("unknown backend")

// ParseBackend converts a backend name to a Backend. The empty string maps
// to Persistent and "local" is accepted as an alias for it.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "persistent", "local":
		return Persistent, nil
	case "session":
		return Session, nil
	case "cookie", "cookies":
		return Cookie, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Valid reports whether b is one of the known backends.
func (b Backend) Valid() bool {
	switch b {
	case Persistent, Session, Cookie:
		return true
	}
	return false
}

func (b Backend) String() string { return string(b) }
