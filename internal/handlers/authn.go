package handlers

import (
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
)

// requireUser authenticates the request from the accessToken cookie or a
// bearer Authorization header before calling next.
func requireUser(sessions SessionManager, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, err := sessions.Authenticate(ctx, accessTokenFromRequest(r))
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		ctx = auth.WithUserID(ctx, user.ID)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("userId", user.ID))
		next(w, r.WithContext(ctx))
	}
}

func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func currentUserID(r *http.Request) (string, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", apperrors.Unauthorized("Unauthorized request")
	}
	return userID, nil
}
