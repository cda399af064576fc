package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

// AuthHandler implements the session endpoints.
type AuthHandler struct {
	Sessions SessionManager
	Cookies  CookieSettings
	NowFunc  func() time.Time
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Login handles POST /api/v1/users/login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	result, err := h.Sessions.Login(ctx, auth.LoginRequest{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.setSession(w, result.Tokens, h.now())
	respondSuccess(ctx, w, http.StatusOK, loginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Sessions.Logout(ctx, userID); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.clearSession(w)
	respondSuccess(ctx, w, http.StatusOK, nil, "User logged out")
}

// Refresh handles POST /api/v1/users/refresh-token. The token is read from the
// refreshToken cookie, falling back to the JSON body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSONBody(w, r, &req, true); err != nil && !errors.Is(err, io.EOF) {
			respondError(ctx, w, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		respondError(ctx, w, apperrors.Unauthorized("Unauthorized request"))
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.setSession(w, tokens, h.now())
	respondSuccess(ctx, w, http.StatusOK, tokensResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password. The session is
// rotated, so fresh cookies are returned.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	tokens, err := h.Sessions.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.setSession(w, tokens, h.now())
	respondSuccess(ctx, w, http.StatusOK, nil, "Password changed successfully")
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
