package handlers

import (
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/models"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// CookieSettings controls the attributes of session cookies. Secure should
// only be disabled for plain-HTTP local development.
type CookieSettings struct {
	Secure bool
	Domain string
}

func (c CookieSettings) setSession(w http.ResponseWriter, tokens models.SessionTokens, now time.Time) {
	http.SetCookie(w, c.cookie(accessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt, now))
	http.SetCookie(w, c.cookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt, now))
}

func (c CookieSettings) clearSession(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.Domain,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (c CookieSettings) cookie(name, value string, expiresAt, now time.Time) *http.Cookie {
	maxAge := int(expiresAt.Sub(now).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
