package types

import (
	"errors"
	"fmt"
	"strings"
)

// SameSite is the cookie SameSite policy.
type SameSite string

// SameSite policies.
const (
	SameSiteStrict SameSite = "Strict"
	SameSiteLax    SameSite = "Lax"
	SameSiteNone   SameSite = "None"
)

// ErrInvalidSameSite is returned when a SameSite policy name is not recognized.
var ErrInvalidSameSite = errors.New("invalid SameSite policy")

// ParseSameSite converts a policy name, case-insensitively. The empty string
// maps to SameSiteLax.
func ParseSameSite(name string) (SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lax":
		return SameSiteLax, nil
	case "strict":
		return SameSiteStrict, nil
	case "none":
		return SameSiteNone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSameSite, name)
}

// Cookie attribute defaults.
const (
	DefaultCookiePath        = "/"
	DefaultCookieExpiresDays = 365
)

// CookieOptions are the write options of a cookie-backed binding.
type CookieOptions struct {
	// ExpiresDays is the cookie lifetime in days. Nil means
	// DefaultCookieExpiresDays; zero produces a session cookie with no
	// expires attribute.
	ExpiresDays *int
	Path        string // Default DefaultCookiePath.
	Domain      string // Omitted when empty.
	Secure      bool
	SameSite    SameSite // Default SameSiteLax.
}

// Days returns an ExpiresDays value for n.
func Days(n int) *int { return &n }

// GetPath returns the cookie path or its default.
func (c CookieOptions) GetPath() string {
	if c.Path == "" {
		return DefaultCookiePath
	}
	return c.Path
}

// GetSameSite returns the SameSite policy or its default.
func (c CookieOptions) GetSameSite() SameSite {
	if c.SameSite == "" {
		return SameSiteLax
	}
	return c.SameSite
}

// Options configure a binding or a one-shot Get/Set.
type Options struct {
	Backend Backend // Default Persistent.
	Default Value   // Returned while the key is absent. Default Absent.

	// CrossTabSync subscribes a persistent binding to storage events from
	// other windows instead of polling. Ignored for other backends.
	CrossTabSync bool

	Cookie CookieOptions

	// OnChange receives every value the binding publishes, including Absent.
	OnChange func(Value)
}

// GetBackend returns the configured backend or Persistent.
func (o Options) GetBackend() Backend {
	if o.Backend == "" {
		return Persistent
	}
	return o.Backend
}
