package identity

import (
	"errors"
	"strings"
	"testing"
)

const validCookies = `_csrf=abc123; __ssid=ssid-val; exp=word space; ui=%7B%22dh%22%3A%22closetqueen%22%2C%22em%22%3A%22cq%40example.com%22%2C%22uid%22%3A%22u-100%22%2C%22fn%22%3A%22Jamie%2520Doe%22%7D; _uetsid=uet1; _web_session=websess; jwt=tok.en.jwt`

func TestNewSession(t *testing.T) {
	s, err := NewSession(validCookies)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	id := s.Identity()
	if id.Username != "closetqueen" {
		t.Fatalf("username = %q, want closetqueen", id.Username)
	}
	if id.Email != "cq@example.com" {
		t.Fatalf("email = %q, want cq@example.com", id.Email)
	}
	if id.UserID != "u-100" {
		t.Fatalf("user id = %q, want u-100", id.UserID)
	}
	if id.FullName != "Jamie Doe" {
		t.Fatalf("full name = %q, want Jamie Doe", id.FullName)
	}
	if s.CapturedAt().IsZero() {
		t.Fatalf("captured-at not set")
	}
}

func TestNewSessionQuoteVariants(t *testing.T) {
	for _, quoted := range []string{
		`"` + validCookies + `"`,
		`'` + validCookies + `'`,
		"  " + validCookies + "  ",
	} {
		if _, err := NewSession(quoted); err != nil {
			t.Fatalf("NewSession(%.20q...) failed: %v", quoted, err)
		}
	}
}

func TestNewSessionMissingCookie(t *testing.T) {
	for _, name := range []string{"_csrf", "__ssid", "exp", "ui", "_uetsid", "_web_session", "jwt"} {
		stripped := removeCookie(validCookies, name)
		_, err := NewSession(stripped)
		var cerr CookieError
		if !errors.As(err, &cerr) {
			t.Fatalf("dropping %s: got %v, want CookieError", name, err)
		}
		if cerr.Name != name {
			t.Fatalf("dropping %s: error names %q", name, cerr.Name)
		}
	}
}

func TestNewSessionEmptyCookieValue(t *testing.T) {
	emptied := strings.Replace(validCookies, "jwt=tok.en.jwt", "jwt=", 1)
	_, err := NewSession(emptied)
	var cerr CookieError
	if !errors.As(err, &cerr) || cerr.Name != "jwt" {
		t.Fatalf("got %v, want CookieError for jwt", err)
	}
}

func TestCookieHeader(t *testing.T) {
	s, err := NewSession(validCookies)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	header := s.CookieHeader()
	parts := strings.Split(header, "; ")
	if len(parts) != 7 {
		t.Fatalf("header has %d pairs, want 7: %s", len(parts), header)
	}
	wantOrder := []string{"_csrf", "__ssid", "exp", "ui", "_uetsid", "_web_session", "jwt"}
	for i, part := range parts {
		if !strings.HasPrefix(part, wantOrder[i]+"=") {
			t.Fatalf("pair %d = %q, want %s=...", i, part, wantOrder[i])
		}
	}
	if !strings.Contains(header, "exp=word%20space") {
		t.Fatalf("spaces not re-encoded as %%20: %s", header)
	}
	// The full name inside the ui cookie was itself url-encoded, so
	// the header carries it double-encoded.
	if !strings.Contains(header, "%2520") {
		t.Fatalf("ui cookie not re-encoded: %s", header)
	}
}

func TestParseCookieStringPlusSign(t *testing.T) {
	cookies := ParseCookieString("tz=UTC+2; raw=a%26b")
	if cookies["tz"] != "UTC+2" {
		t.Fatalf("tz = %q, want UTC+2", cookies["tz"])
	}
	if cookies["raw"] != "a&b" {
		t.Fatalf("raw = %q, want a&b", cookies["raw"])
	}
}

func removeCookie(raw, name string) string {
	var kept []string
	for _, pair := range strings.Split(raw, "; ") {
		if !strings.HasPrefix(pair, name+"=") {
			kept = append(kept, pair)
		}
	}
	return strings.Join(kept, "; ")
}
