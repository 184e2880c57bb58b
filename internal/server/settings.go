package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/tempo/internal/shared"
	"github.com/desertthunder/tempo/internal/timer"
)

const (
	FocusCookie = "focusTime"
	BreakCookie = "breakTime"

	settingsMaxAge  = 365 * 24 * time.Hour
	settingsMaxBody = 1 << 10
)

// SettingsHandler stores timer durations in long-lived browser cookies.
type SettingsHandler struct {
	defaults timer.Settings
	secure   bool
}

// NewSettingsHandler creates a [SettingsHandler] that falls back to defaults.
func NewSettingsHandler(defaults timer.Settings, secure bool) *SettingsHandler {
	if defaults.Validate() != nil {
		defaults = timer.DefaultSettings()
	}
	return &SettingsHandler{defaults: defaults, secure: secure}
}

// Register mounts the settings routes on r.
func (h *SettingsHandler) Register(r Router) {
	r.Handle(http.MethodGet, "/settings", http.HandlerFunc(h.Get))
	r.Handle(http.MethodPut, "/settings", http.HandlerFunc(h.Put))
}

// Get returns the durations from the request cookies.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.read(r))
}

// Put validates and stores new durations.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var s timer.Settings
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, settingsMaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings body")
		return
	}

	if err := s.Validate(); err != nil {
		msg := "invalid settings"
		if errors.Is(err, shared.ErrInvalidInput) {
			msg = fmt.Sprintf("minutes must be between %d and %d", timer.MinMinutes, timer.MaxMinutes)
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	h.set(w, FocusCookie, s.FocusMinutes)
	h.set(w, BreakCookie, s.BreakMinutes)
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) read(r *http.Request) timer.Settings {
	return timer.Settings{
		FocusMinutes: cookieMinutes(r, FocusCookie, h.defaults.FocusMinutes),
		BreakMinutes: cookieMinutes(r, BreakCookie, h.defaults.BreakMinutes),
	}
}

func (h *SettingsHandler) set(w http.ResponseWriter, name string, minutes int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    strconv.Itoa(minutes),
		Path:     "/",
		MaxAge:   int(settingsMaxAge / time.Second),
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieMinutes(r *http.Request, name string, fallback int) int {
	c, err := r.Cookie(name)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(c.Value)
	if err != nil || n < timer.MinMinutes || n > timer.MaxMinutes {
		return fallback
	}
	return n
}
