package types

import "errors"

// Area is a string key-value storage area with the semantics of web storage:
// GetItem reports absence separately from the empty string, SetItem
// overwrites, RemoveItem of a missing key is not an error.
type Area interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Clear() error
	Keys() ([]string, error)
}

// CookieStore is a cookie jar with document.cookie semantics. Cookie returns
// the "name=value" pairs of every live cookie joined by "; ". SetCookie
// accepts one cookie string with attributes, as assigned to document.cookie.
type CookieStore interface {
	Cookie() (string, error)
	SetCookie(cookie string) error
}

// StorageEvent reports a change made to a shared storage area by another
// window. An empty Key means the whole area was cleared.
type StorageEvent struct {
	Key      string
	OldValue Raw
	NewValue Raw
	Area     Backend
	Window   string // ID of the window that made the change.
}

// Storage errors.
var (
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	ErrAccessDenied       = errors.New("storage access denied")
	ErrWriteFailed        = errors.New("storage write failed")
	ErrInvalidCookie      = errors.New("invalid cookie")
	ErrAreaClosed         = errors.New("storage area is closed")
)
