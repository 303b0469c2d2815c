package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gophtasks/internal/common"
)

const (
	oauthStateCookieName = "oauth_state"
	oauthStateMaxAge     = 600
)

// setRefreshTokenCookie is Secure and SameSite=Strict in production, Lax otherwise.
func (s *Server) setRefreshTokenCookie(w http.ResponseWriter, token string) {
	sameSite := http.SameSiteLaxMode
	if s.config.IsProduction() {
		sameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   int(s.config.RefreshTokenValidityDuration.Seconds()),
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: sameSite,
	})
}

func (s *Server) clearRefreshTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// The state cookie must survive the top-level redirect back from the
// provider, so it is Lax in every environment.
func (s *Server) setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
