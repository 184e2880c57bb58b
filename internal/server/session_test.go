package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/tempo/internal/shared"
)

func newTestSessions(t *testing.T, secret string) *Sessions {
	t.Helper()
	s, err := NewSessions(secret, time.Hour, false)
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	return s
}

// sessionFor runs the middleware once and returns the issued cookie and session id.
func sessionFor(t *testing.T, s *Sessions, cookie *http.Cookie) (*http.Cookie, string) {
	t.Helper()
	var sid string
	h := s.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		sid, _ = SessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c, sid
		}
	}
	return nil, sid
}

func TestSessions(t *testing.T) {
	t.Run("issues and reuses a session", func(t *testing.T) {
		s := newTestSessions(t, "secret")
		cookie, sid := sessionFor(t, s, nil)
		if cookie == nil || sid == "" {
			t.Fatal("expected a new session cookie")
		}
		if cookie.MaxAge != int(time.Hour/time.Second) {
			t.Errorf("expected max-age of the session TTL, got %d", cookie.MaxAge)
		}

		again, sid2 := sessionFor(t, s, cookie)
		if again != nil {
			t.Error("expected a valid cookie not to be reissued")
		}
		if sid2 != sid {
			t.Errorf("expected session %s, got %s", sid, sid2)
		}
	})

	t.Run("tampered cookie starts a new session", func(t *testing.T) {
		s := newTestSessions(t, "secret")
		cookie, sid := sessionFor(t, s, nil)
		cookie.Value += "x"

		fresh, sid2 := sessionFor(t, s, cookie)
		if fresh == nil || sid2 == sid {
			t.Error("expected a new session for a tampered cookie")
		}
	})

	t.Run("cookie from another secret is rejected", func(t *testing.T) {
		cookie, sid := sessionFor(t, newTestSessions(t, "one"), nil)
		_, sid2 := sessionFor(t, newTestSessions(t, "two"), cookie)
		if sid2 == sid {
			t.Error("expected a different secret to refuse the cookie")
		}
	})

	t.Run("expired cookie starts a new session", func(t *testing.T) {
		s := newTestSessions(t, "secret")
		cookie, sid := sessionFor(t, s, nil)

		s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, sid2 := sessionFor(t, s, cookie)
		if sid2 == sid {
			t.Error("expected expired session to be replaced")
		}
	})

	t.Run("empty secret is ephemeral", func(t *testing.T) {
		if !newTestSessions(t, "").Ephemeral() {
			t.Error("expected an empty secret to be ephemeral")
		}
		if newTestSessions(t, "set").Ephemeral() {
			t.Error("expected a configured secret not to be ephemeral")
		}
	})
}

func TestState(t *testing.T) {
	s := newTestSessions(t, "secret")

	t.Run("round trip", func(t *testing.T) {
		state, err := s.IssueState("sid-1")
		if err != nil {
			t.Fatalf("IssueState: %v", err)
		}
		if err := s.VerifyState(state, "sid-1"); err != nil {
			t.Errorf("expected valid state, got %v", err)
		}
	})

	t.Run("unique per issue", func(t *testing.T) {
		a, _ := s.IssueState("sid-1")
		b, _ := s.IssueState("sid-1")
		if a == b {
			t.Error("expected a fresh nonce in every state")
		}
	})

	tests := []struct {
		name  string
		state func() string
		sid   string
	}{
		{name: "empty", state: func() string { return "" }, sid: "sid-1"},
		{name: "garbage", state: func() string { return "not-a-token" }, sid: "sid-1"},
		{
			name: "other session",
			state: func() string {
				st, _ := s.IssueState("sid-2")
				return st
			},
			sid: "sid-1",
		},
		{
			name: "session cookie replayed as state",
			state: func() string {
				st, _ := s.sign("sid-1", s.cookieKey, sessionAudience, time.Hour, "")
				return st
			},
			sid: "sid-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.VerifyState(tt.state(), tt.sid); !errors.Is(err, shared.ErrInvalidState) {
				t.Errorf("expected ErrInvalidState, got %v", err)
			}
		})
	}

	t.Run("expired", func(t *testing.T) {
		state, _ := s.IssueState("sid-1")
		later := newTestSessions(t, "secret")
		later.now = func() time.Time { return time.Now().Add(stateTTL + time.Minute) }

		if err := later.VerifyState(state, "sid-1"); !errors.Is(err, shared.ErrInvalidState) {
			t.Errorf("expected expired state to be rejected, got %v", err)
		}
	})
}
