package session

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Sealer protects the persisted session identifier against tampering.
type Sealer interface {
	Seal(sid string, ttl time.Duration) (string, error)
	Unseal(token string) (string, error)
}

// Relay translates between the browser's cookies and backend credentials.
type Relay struct {
	cookieName string
	sealer     Sealer
	secure     bool
	maxAge     time.Duration
}

// Options configures a Relay.
type Options struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration
}

// NewRelay constructs a relay.
func NewRelay(sealer Sealer, opts Options) *Relay {
	if opts.CookieName == "" {
		opts.CookieName = "relay_sid"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}
	return &Relay{cookieName: opts.CookieName, sealer: sealer, secure: opts.Secure, maxAge: opts.MaxAge}
}

// CookieName returns the name of the persisted session cookie.
func (r *Relay) CookieName() string {
	return r.cookieName
}

// FromRequest prefers the persisted session cookie and falls back to the raw
// inbound Cookie header.
func (r *Relay) FromRequest(c *fiber.Ctx) Credential {
	if sid := r.PersistedSID(c); sid != "" {
		return FromSID(sid)
	}
	return Credential(c.Get(fiber.HeaderCookie))
}

// PersistedSID returns the unsealed backend identifier from the persisted
// cookie, or "" when it is missing or invalid.
func (r *Relay) PersistedSID(c *fiber.Ctx) string {
	raw := c.Cookies(r.cookieName)
	if raw == "" {
		return ""
	}
	if r.sealer == nil {
		return raw
	}
	sid, err := r.sealer.Unseal(raw)
	if err != nil {
		return ""
	}
	return sid
}

// Persist stores sid as a first-party cookie. Remembered sessions live for
// the configured max age; others last for the browser session.
func (r *Relay) Persist(c *fiber.Ctx, sid string, remember bool) error {
	value := sid
	if r.sealer != nil {
		sealed, err := r.sealer.Seal(sid, r.maxAge)
		if err != nil {
			return err
		}
		value = sealed
	}
	cookie := &fiber.Cookie{
		Name:     r.cookieName,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   r.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(r.maxAge / time.Second)
		cookie.Expires = time.Now().Add(r.maxAge)
	} else {
		cookie.SessionOnly = true
	}
	c.Cookie(cookie)
	return nil
}

// ExpireAll expires every cookie named in the inbound header and the
// persisted session cookie.
func (r *Relay) ExpireAll(c *fiber.Ctx) []string {
	names := CookieNames(c.Get(fiber.HeaderCookie))
	seen := make(map[string]struct{}, len(names)+1)
	expired := make([]string, 0, len(names)+1)
	for _, name := range append(names, r.cookieName) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   r.secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		expired = append(expired, name)
	}
	return expired
}

// CookieNames lists the cookie names in a raw Cookie header.
func CookieNames(header string) []string {
	var names []string
	for _, part := range strings.Split(header, ";") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), "=")
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
