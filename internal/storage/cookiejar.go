package storage

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// StoredCookie is one cookie held by a CookieJar. A zero Expires marks a
// session cookie.
type StoredCookie struct {
	Name      string
	Value     string
	Path      string
	Domain    string
	Expires   time.Time
	Secure    bool
	HTTPOnly  bool
	SameSite  types.SameSite
	CreatedAt time.Time
}

// expired reports whether the cookie has an expiry at or before now.
func (c StoredCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// CookieJar holds cookies for one origin with document.cookie semantics.
// Cookies are identified by (name, path, domain); writing a cookie whose
// expiry is in the past deletes the matching cookie. Every cookie is visible
// through Cookie except HttpOnly ones, which only a server response can set.
type CookieJar struct {
	mu      sync.Mutex
	cookies []StoredCookie // creation order
	now     func() time.Time
}

// NewCookieJar creates an empty jar. A nil clock uses time.Now.
func NewCookieJar(now func() time.Time) *CookieJar {
	if now == nil {
		now = time.Now
	}
	return &CookieJar{now: now}
}

// Cookie returns "name=value" pairs of every live, script-visible cookie
// joined by "; ". Longer paths come first; equal paths keep creation order.
func (j *CookieJar) Cookie() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.purgeLocked()
	visible := make([]StoredCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		if !c.HTTPOnly {
			visible = append(visible, c)
		}
	}
	slices.SortStableFunc(visible, func(a, b StoredCookie) int {
		return len(b.Path) - len(a.Path)
	})

	parts := make([]string, len(visible))
	for i, c := range visible {
		parts[i] = c.Name + "=" + c.Value
	}
	return strings.Join(parts, "; "), nil
}

// SetCookie stores one cookie from a document.cookie assignment such as
// "theme=dark; expires=...; path=/; SameSite=Lax".
func (j *CookieJar) SetCookie(cookie string) error {
	c, err := parseCookieString(cookie, j.now())
	if err != nil {
		return err
	}
	j.store(c)
	return nil
}

// SetCookieHeader stores a cookie from a Set-Cookie response header. Unlike
// SetCookie it may set HttpOnly cookies.
func (j *CookieJar) SetCookieHeader(header string) error {
	hc, err := http.ParseSetCookie(header)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidCookie, err)
	}
	now := j.now()
	c := StoredCookie{
		Name:     hc.Name,
		Value:    hc.Value,
		Path:     hc.Path,
		Domain:   normalizeDomain(hc.Domain),
		Secure:   hc.Secure,
		HTTPOnly: hc.HttpOnly,
		SameSite: fromHTTPSameSite(hc.SameSite),
	}
	if c.Path == "" {
		c.Path = types.DefaultCookiePath
	}
	switch {
	case hc.MaxAge < 0:
		c.Expires = time.Unix(0, 0)
	case hc.MaxAge > 0:
		c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
	case !hc.Expires.IsZero():
		c.Expires = hc.Expires
	}
	if err := validateCookie(c); err != nil {
		return err
	}
	j.store(c)
	return nil
}

// Cookies returns a copy of every live cookie, HttpOnly ones included.
func (j *CookieJar) Cookies() []StoredCookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.purgeLocked()
	return slices.Clone(j.cookies)
}

// Restore replaces the jar contents. Expired cookies are dropped.
func (j *CookieJar) Restore(cookies []StoredCookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = slices.Clone(cookies)
	j.purgeLocked()
}

func (j *CookieJar) store(c StoredCookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	idx := slices.IndexFunc(j.cookies, func(e StoredCookie) bool {
		return e.Name == c.Name && e.Path == c.Path && e.Domain == c.Domain
	})
	if c.expired(now) {
		if idx >= 0 {
			j.cookies = slices.Delete(j.cookies, idx, idx+1)
		}
		return
	}
	if idx >= 0 {
		c.CreatedAt = j.cookies[idx].CreatedAt
		j.cookies[idx] = c
		return
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	j.cookies = append(j.cookies, c)
}

// purgeLocked drops expired cookies. The caller must hold j.mu.
func (j *CookieJar) purgeLocked() {
	now := j.now()
	j.cookies = slices.DeleteFunc(j.cookies, func(c StoredCookie) bool {
		return c.expired(now)
	})
}

// parseCookieString parses a document.cookie assignment.
func parseCookieString(s string, now time.Time) (StoredCookie, error) {
	segments := strings.Split(s, ";")
	name, value, ok := strings.Cut(segments[0], "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return StoredCookie{}, fmt.Errorf("%w: missing name in %q", types.ErrInvalidCookie, s)
	}

	c := StoredCookie{
		Name:     name,
		Value:    strings.TrimSpace(value),
		Path:     types.DefaultCookiePath,
		SameSite: types.SameSiteLax,
	}
	maxAgeSet := false
	for _, seg := range segments[1:] {
		attr, val, _ := strings.Cut(strings.TrimSpace(seg), "=")
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(attr)) {
		case "expires":
			if maxAgeSet {
				continue
			}
			t, err := http.ParseTime(val)
			if err != nil {
				return StoredCookie{}, fmt.Errorf("%w: bad expires %q", types.ErrInvalidCookie, val)
			}
			c.Expires = t
		case "max-age":
			secs, err := strconv.Atoi(val)
			if err != nil {
				return StoredCookie{}, fmt.Errorf("%w: bad max-age %q", types.ErrInvalidCookie, val)
			}
			maxAgeSet = true
			if secs <= 0 {
				c.Expires = time.Unix(0, 0)
			} else {
				c.Expires = now.Add(time.Duration(secs) * time.Second)
			}
		case "path":
			if val != "" {
				c.Path = val
			}
		case "domain":
			c.Domain = normalizeDomain(val)
		case "secure":
			c.Secure = true
		case "samesite":
			ss, err := types.ParseSameSite(val)
			if err != nil {
				return StoredCookie{}, fmt.Errorf("%w: %v", types.ErrInvalidCookie, err)
			}
			c.SameSite = ss
		case "httponly":
			// Scripts cannot create HttpOnly cookies.
			return StoredCookie{}, fmt.Errorf("%w: HttpOnly from script", types.ErrInvalidCookie)
		}
	}
	if err := validateCookie(c); err != nil {
		return StoredCookie{}, err
	}
	return c, nil
}

func validateCookie(c StoredCookie) error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty name", types.ErrInvalidCookie)
	}
	if c.SameSite == types.SameSiteNone && !c.Secure {
		return fmt.Errorf("%w: SameSite=None requires secure", types.ErrInvalidCookie)
	}
	return nil
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
}

func fromHTTPSameSite(s http.SameSite) types.SameSite {
	switch s {
	case http.SameSiteStrictMode:
		return types.SameSiteStrict
	case http.SameSiteNoneMode:
		return types.SameSiteNone
	}
	return types.SameSiteLax
}

var _ types.CookieStore = (*CookieJar)(nil)
