package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"spesewa/internal/log"
)

const stateCookie = "oauth_state"

func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	if s.opts.OAuth == nil {
		writeError(w, http.StatusServiceUnavailable, "Google authorization is not configured")
		return
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start authorization")
		return
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.opts.OAuth.AuthURL(state), http.StatusFound)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	if s.opts.OAuth == nil {
		writeError(w, http.StatusServiceUnavailable, "Google authorization is not configured")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "No authorization code provided")
		return
	}

	c, err := r.Cookie(stateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) != 1 {
		logger.WarnContext(ctx, "OAuth state mismatch")
		writeError(w, http.StatusBadRequest, "Invalid authorization state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/google", MaxAge: -1})

	if err := s.opts.OAuth.Exchange(ctx, code); err != nil {
		logger.ErrorContext(ctx, "Error handling auth callback", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	logger.InfoContext(ctx, "Google account authorized")
	http.Redirect(w, r, "/", http.StatusFound)
}
