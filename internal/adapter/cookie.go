package adapter

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// removalExpiry is the expires attribute that deletes a cookie.
const removalExpiry = "Thu, 01 Jan 1970 00:00:00 GMT"

// EncodeCookieValue percent-encodes s for use as a cookie value.
func EncodeCookieValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DecodeCookieValue reverses EncodeCookieValue. Malformed escapes are
// returned verbatim.
func DecodeCookieValue(s string) string {
	v, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return v
}

// BuildCookie returns the cookie string that stores value under name:
//
//	name=<encoded>; expires=<HTTP-date>; path=<path>; domain=<d>; secure; SameSite=<policy>
//
// expires is omitted when opts.ExpiresDays is zero; domain and secure are
// omitted when unset.
func BuildCookie(name, value string, opts types.CookieOptions, now time.Time) string {
	days := types.DefaultCookieExpiresDays
	if opts.ExpiresDays != nil {
		days = *opts.ExpiresDays
	}

	parts := []string{name + "=" + EncodeCookieValue(value)}
	if days != 0 {
		exp := now.Add(time.Duration(days) * 24 * time.Hour).UTC()
		parts = append(parts, "expires="+exp.Format(http.TimeFormat))
	}
	parts = append(parts, "path="+opts.GetPath())
	if opts.Domain != "" {
		parts = append(parts, "domain="+opts.Domain)
	}
	if opts.Secure {
		parts = append(parts, "secure")
	}
	parts = append(parts, "SameSite="+string(opts.GetSameSite()))
	return strings.Join(parts, "; ")
}

// BuildRemoval returns the cookie string that deletes name under the path
// and domain of opts.
func BuildRemoval(name string, opts types.CookieOptions) string {
	s := name + "=; expires=" + removalExpiry + "; path=" + opts.GetPath()
	if opts.Domain != "" {
		s += "; domain=" + opts.Domain
	}
	return s
}

// ReadCookie finds name in a "k1=v1; k2=v2" cookie string and returns its
// decoded value, or RawAbsent when no pair matches.
func ReadCookie(cookies, name string) types.Raw {
	prefix := name + "="
	for _, part := range strings.Split(cookies, ";") {
		part = strings.TrimLeft(part, " ")
		if strings.HasPrefix(part, prefix) {
			return types.RawText(DecodeCookieValue(part[len(prefix):]))
		}
	}
	return types.RawAbsent
}
