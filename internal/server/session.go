package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/tempo/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	// SessionCookie names the signed session cookie.
	SessionCookie = "tempo_session"

	sessionAudience = "tempo-session"
	stateAudience   = "tempo-state"
	stateTTL        = 10 * time.Minute
	defaultTTL      = 30 * 24 * time.Hour
)

type sessionKey struct{}

// Sessions issues the signed session cookie and the OAuth state bound to it.
//
// Cookie and state tokens are HS256 JWTs signed with separate keys derived from one secret,
// so a session cookie can never be replayed as a state parameter.
type Sessions struct {
	cookieKey []byte
	stateKey  []byte
	ttl       time.Duration
	secure    bool
	ephemeral bool
	now       func() time.Time
}

// NewSessions derives signing keys from secret. An empty secret gets a random one,
// so sessions do not survive a restart.
func NewSessions(secret string, ttl time.Duration, secure bool) (*Sessions, error) {
	s := &Sessions{ttl: ttl, secure: secure, now: time.Now}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}

	master := []byte(secret)
	if secret == "" {
		master = make([]byte, 32)
		if _, err := rand.Read(master); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		s.ephemeral = true
	}

	var err error
	if s.cookieKey, err = deriveKey(master, "tempo session cookie"); err != nil {
		return nil, err
	}
	if s.stateKey, err = deriveKey(master, "tempo oauth state"); err != nil {
		return nil, err
	}
	return s, nil
}

func deriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Ephemeral reports whether the signing secret was generated at startup.
func (s *Sessions) Ephemeral() bool { return s.ephemeral }

// Middleware attaches the session id to the request context, issuing a new session cookie
// when the request has none or its cookie fails verification.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, err := s.sessionFromRequest(r)
		if err != nil {
			sid = shared.GenerateID()
			if err := s.setCookie(w, sid); err != nil {
				writeError(w, http.StatusInternalServerError, "session unavailable")
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
	})
}

// WithSessionID returns ctx carrying sid.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sid)
}

// SessionID returns the session id set by [Sessions.Middleware].
func SessionID(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionKey{}).(string)
	return sid, ok && sid != ""
}

func (s *Sessions) sessionFromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	return s.verify(c.Value, s.cookieKey, sessionAudience)
}

func (s *Sessions) setCookie(w http.ResponseWriter, sid string) error {
	token, err := s.sign(sid, s.cookieKey, sessionAudience, s.ttl, "")
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IssueState returns a signed, single-session OAuth state valid for ten minutes.
func (s *Sessions) IssueState(sid string) (string, error) {
	nonce, err := shared.GenerateNonce(16)
	if err != nil {
		return "", err
	}
	return s.sign(sid, s.stateKey, stateAudience, stateTTL, nonce)
}

// VerifyState checks the state's signature, expiry and binding to sid.
func (s *Sessions) VerifyState(state, sid string) error {
	if state == "" {
		return fmt.Errorf("%w: missing", shared.ErrInvalidState)
	}
	got, err := s.verify(state, s.stateKey, stateAudience)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidState, err)
	}
	if got != sid {
		return fmt.Errorf("%w: issued to another session", shared.ErrInvalidState)
	}
	return nil
}

func (s *Sessions) sign(sid string, key []byte, audience string, ttl time.Duration, id string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   sid,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        id,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (s *Sessions) verify(raw string, key []byte, audience string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
