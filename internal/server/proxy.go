package server

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/services"
	"github.com/desertthunder/tempo/internal/shared"
)

// ProxyHandler exposes a [services.TokenProxy] to the browser.
//
// Every route expects [Sessions.Middleware] to have run.
type ProxyHandler struct {
	proxy    *services.TokenProxy
	sessions *Sessions
	logger   *log.Logger
}

// NewProxyHandler creates a [ProxyHandler].
func NewProxyHandler(proxy *services.TokenProxy, sessions *Sessions, logger *log.Logger) *ProxyHandler {
	return &ProxyHandler{proxy: proxy, sessions: sessions, logger: logger.WithPrefix("http")}
}

// Register mounts the proxy routes on r.
func (h *ProxyHandler) Register(r Router) {
	r.Handle(http.MethodGet, "/login", http.HandlerFunc(h.Login))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(h.Callback))
	r.Handle(http.MethodGet, "/current-track", http.HandlerFunc(h.CurrentTrack))
	r.Handle(http.MethodPost, "/logout", http.HandlerFunc(h.Logout))
}

func (h *ProxyHandler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, ok := SessionID(r.Context())
	if !ok {
		h.logger.Error("no session on request", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "session unavailable")
	}
	return sid, ok
}

// Login redirects to the provider consent page with a state bound to the session.
func (h *ProxyHandler) Login(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}

	state, err := h.sessions.IssueState(sid)
	if err != nil {
		h.logger.Error("failed to issue state", "err", err)
		writeError(w, http.StatusInternalServerError, msgAuthFailed)
		return
	}
	http.Redirect(w, r, h.proxy.LoginURL(state), http.StatusFound)
}

// Callback completes the authorization code flow and returns to the application shell.
func (h *ProxyHandler) Callback(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if err := h.sessions.VerifyState(q.Get("state"), sid); err != nil {
		h.logger.Warn("callback rejected", "err", err)
		writeError(w, http.StatusBadRequest, msgInvalidState)
		return
	}

	if e := q.Get("error"); e != "" {
		h.logger.Warn("authorization denied", "error", e, "description", q.Get("error_description"))
		writeError(w, http.StatusInternalServerError, msgAuthFailed)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, msgMissingCode)
		return
	}

	if err := h.proxy.Authorize(r.Context(), sid, code); err != nil {
		h.logger.Error("token exchange failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgAuthFailed)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// CurrentTrack reports the session's now-playing state.
func (h *ProxyHandler) CurrentTrack(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	np, err := h.proxy.CurrentTrack(r.Context(), sid)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, np)
	case errors.Is(err, shared.ErrTokenRefreshed):
		writeError(w, http.StatusUnauthorized, msgTokenRefreshed)
	case errors.Is(err, shared.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
	default:
		h.logger.Error("current track failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
	}
}

// Logout forgets the session's tokens and expires its cookie.
func (h *ProxyHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.proxy.Logout(r.Context(), sid); err != nil {
		h.logger.Error("logout failed", "err", err)
	}
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
