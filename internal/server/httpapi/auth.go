package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/server/auth"
	"github.com/dmitrijs2005/gemdeck/internal/shared"
)

const stateCookieTTL = 600

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		http.Error(w, "login is not configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.verifyHuman(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	state, err := shared.MakeRandHexString(16)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.StateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   stateCookieTTL,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.provider.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		http.Error(w, "login is not configured", http.StatusServiceUnavailable)
		return
	}

	c, err := r.Cookie(common.StateCookieName)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) != 1 {
		s.writeError(w, r, common.ErrorBadInput)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: common.StateCookieName, Path: "/auth", MaxAge: -1})

	profile, err := s.provider.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.logger.Warn(r.Context(), "oauth exchange failed", "error", err)
		s.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	token, err := auth.IssueSession(auth.Structured{
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	}, s.opts.SessionSecret, s.opts.SessionTTL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info(r.Context(), "user logged in", "email", profile.Email)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

type meResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	IsAdmin       bool   `json:"isAdmin"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, meResponse{})
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Authenticated: true,
		Email:         p.Email,
		Name:          p.Name,
		Picture:       p.Picture,
		IsAdmin:       p.IsAdmin,
	})
}
