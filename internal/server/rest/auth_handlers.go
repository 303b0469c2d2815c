package rest

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/oauth"
	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
)

// Login failure codes passed to the frontend callback page.
const (
	loginErrNoUserData       = "no_user_data"
	loginErrInvalidUserData  = "invalid_user_data"
	loginErrProcessingFailed = "processing_failed"
	loginErrAuthFailed       = "auth_failed"
)

type meResponse struct {
	*models.User
	Permissions []rbac.Permission `json:"permissions"`
}

type statusUser struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Roles []rbac.Role `json:"roles"`
}

type statusResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          statusUser        `json:"user"`
	Permissions   []rbac.Permission `json:"permissions"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) googleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := oauth.StateToken()
	if err != nil {
		s.logger.Error(r.Context(), "error generating oauth state", "error", err.Error())
		errorJSON(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.setStateCookie(w, state)
	s.logger.Info(r.Context(), "Google authentication initiated")
	http.Redirect(w, r, s.provider.AuthURL(state), http.StatusFound)
}

func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	frontendURL := strings.TrimRight(s.config.FrontendURL, "/")
	if frontendURL == "" {
		s.logger.Error(ctx, "FRONTEND_URL not configured")
		http.Error(w, "Server configuration error", http.StatusInternalServerError)
		return
	}

	fail := func(code string) {
		http.Redirect(w, r, frontendURL+"/auth/login/callback?error="+code, http.StatusFound)
	}

	q := r.URL.Query()
	cookie, err := r.Cookie(oauthStateCookieName)
	s.clearStateCookie(w)
	if err != nil || q.Get("state") == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		s.logger.Warn(ctx, "oauth state mismatch")
		fail(loginErrAuthFailed)
		return
	}

	if q.Get("error") != "" || q.Get("code") == "" {
		s.logger.Warn(ctx, "oauth provider returned no code", "provider_error", q.Get("error"))
		fail(loginErrAuthFailed)
		return
	}

	profile, err := s.provider.Profile(ctx, q.Get("code"))
	if err != nil {
		s.logger.Error(ctx, "Google authentication failed", "error", err.Error())
		fail(loginErrAuthFailed)
		return
	}
	if profile.Email == "" {
		s.logger.Error(ctx, "No user data received from Google")
		fail(loginErrNoUserData)
		return
	}

	s.logger.Info(ctx, "Processing Google login", "email", profile.Email)

	user, err := s.sessions.FindOrCreateUserFromGoogle(ctx, profile)
	if err != nil {
		s.logger.Error(ctx, "Google authentication failed", "error", err.Error())
		switch {
		case errors.Is(err, common.ErrInvalidUserData):
			fail(loginErrInvalidUserData)
		case errors.Is(err, common.ErrProcessingFailed):
			fail(loginErrProcessingFailed)
		default:
			fail(loginErrAuthFailed)
		}
		return
	}

	pair, err := s.sessions.IssueTokenPair(ctx, user)
	if err != nil {
		s.logger.Error(ctx, "error issuing tokens", "user_id", user.ID, "error", err.Error())
		fail(loginErrAuthFailed)
		return
	}

	s.setRefreshTokenCookie(w, pair.RefreshToken)
	s.logger.Info(ctx, "Google authentication successful", "user_id", user.ID)

	http.Redirect(w, r, frontendURL+"/auth/login/callback?token="+url.QueryEscape(pair.AccessToken), http.StatusFound)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id, _ := PrincipalFrom(r.Context())

	user, err := s.sessions.FindUserByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: user, Permissions: s.sessions.Permissions(user)})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	id, _ := PrincipalFrom(r.Context())

	user, err := s.sessions.FindUserByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			errorJSON(w, http.StatusUnauthorized, "User no longer exists")
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		User:          statusUser{ID: user.ID, Email: user.Email, Name: user.Name, Roles: user.Roles},
		Permissions:   s.sessions.Permissions(user),
	})
}

// logout always clears the cookie and reports success.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	id, _ := PrincipalFrom(r.Context())

	if err := s.sessions.RevokeAllUserRefreshTokens(r.Context(), id.UserID); err != nil {
		s.logger.Error(r.Context(), "Error during logout", "user_id", id.UserID, "error", err.Error())
	} else {
		s.logger.Info(r.Context(), "User logged out, all tokens revoked", "user_id", id.UserID)
	}

	s.clearRefreshTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	id, _ := PrincipalFrom(r.Context())

	err := s.sessions.RevokeAllUserRefreshTokens(r.Context(), id.UserID)
	s.clearRefreshTokenCookie(w)
	if err != nil {
		s.logger.Error(r.Context(), "Error during logout all", "user_id", id.UserID, "error", err.Error())
		errorJSON(w, http.StatusInternalServerError, "Failed to logout all sessions")
		return
	}

	s.logger.Info(r.Context(), "All sessions revoked", "user_id", id.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "All sessions logged out successfully"})
}

// refresh reads the refresh_token cookie, or a JSON body for clients that
// cannot send cookies. Any failure clears the cookie and answers 401.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		token = c.Value
	}
	if token == "" && r.Body != nil {
		var body refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			token = body.RefreshToken
		}
	}

	if token == "" {
		s.logger.Warn(r.Context(), "No refresh token found in request")
		s.clearRefreshTokenCookie(w)
		errorJSON(w, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	s.logger.Debug(r.Context(), "Processing refresh token", "token", common.TokenPrefix(token))

	pair, err := s.sessions.HandleRefresh(r.Context(), token)
	if err != nil {
		s.logger.Warn(r.Context(), "Error refreshing token", "error", err.Error())
		s.clearRefreshTokenCookie(w)
		errorJSON(w, http.StatusUnauthorized, "Failed to refresh token")
		return
	}

	s.setRefreshTokenCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken": pair.AccessToken,
		"message":     "Tokens refreshed successfully",
	})
}
