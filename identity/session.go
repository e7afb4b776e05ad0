package identity

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// cookieWhitelist is the set of cookies the marketplace requires on
// every authenticated request, in the order they are sent.
var cookieWhitelist = []string{
	"_csrf",
	"__ssid",
	"exp",
	"ui",
	"_uetsid",
	"_web_session",
	"jwt",
}

// CookieError reports a required cookie that was missing or empty in
// the pasted cookie string.
type CookieError struct {
	Name string
}

func (e CookieError) Error() string {
	return fmt.Sprintf("required cookie %q is missing or empty", e.Name)
}

// Identity is the account info decoded from the "ui" cookie.
type Identity struct {
	Username string `json:"dh"`
	Email    string `json:"em"`
	UserID   string `json:"uid"`
	FullName string `json:"fn"`
}

// Session holds a validated set of login cookies plus the identity
// they belong to. Sessions are immutable after construction; when the
// cookies expire the caller builds a new one from a fresh paste.
type Session struct {
	cookies    map[string]string
	identity   Identity
	capturedAt time.Time
}

// ParseCookieString splits a browser-pasted "name=value; name=value"
// string into a map. One surrounding layer of single or double quotes
// is stripped first. Values are percent-decoded; a literal "+" in a
// value survives decoding unchanged.
func ParseCookieString(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		if (raw[0] == '"' && raw[len(raw)-1] == '"') || (raw[0] == '\'' && raw[len(raw)-1] == '\'') {
			raw = raw[1 : len(raw)-1]
		}
	}

	cookies := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		if name == "" {
			continue
		}
		// Keep literal plus signs: QueryUnescape would turn them
		// into spaces.
		escaped := strings.ReplaceAll(value, "+", "%2B")
		decoded, err := url.QueryUnescape(escaped)
		if err != nil {
			decoded = value
		}
		cookies[name] = decoded
	}
	return cookies
}

// NewSession validates a pasted cookie string and decodes the account
// identity from it. Every whitelisted cookie must be present and
// non-empty.
func NewSession(cookieString string) (*Session, error) {
	parsed := ParseCookieString(cookieString)

	cookies := make(map[string]string, len(cookieWhitelist))
	for _, name := range cookieWhitelist {
		value, ok := parsed[name]
		if !ok || value == "" {
			return nil, CookieError{Name: name}
		}
		cookies[name] = value
	}

	var id Identity
	if err := json.Unmarshal([]byte(cookies["ui"]), &id); err != nil {
		return nil, fmt.Errorf("decoding ui cookie: %w", err)
	}
	if fn, err := url.QueryUnescape(id.FullName); err == nil {
		id.FullName = fn
	}

	return &Session{
		cookies:    cookies,
		identity:   id,
		capturedAt: time.Now(),
	}, nil
}

func (s *Session) Identity() Identity        { return s.identity }
func (s *Session) CapturedAt() time.Time     { return s.capturedAt }
func (s *Session) Cookie(name string) string { return s.cookies[name] }

// CookieHeader renders the whitelisted cookies as a Cookie header
// value, RFC 3986 encoded, in whitelist order.
func (s *Session) CookieHeader() string {
	pairs := make([]string, 0, len(cookieWhitelist))
	for _, name := range cookieWhitelist {
		pairs = append(pairs, rfc3986Encode(name)+"="+rfc3986Encode(s.cookies[name]))
	}
	return strings.Join(pairs, "; ")
}

// rfc3986Encode percent-encodes like url.QueryEscape but renders
// spaces as %20 rather than "+".
func rfc3986Encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
