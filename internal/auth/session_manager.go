package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// CredentialStore is the subset of user persistence the session manager relies on.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentity(ctx context.Context, username, email string) (models.User, error)
	UpdateFields(ctx context.Context, id string, patch models.UserPatch) (models.User, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	SwapRefreshToken(ctx context.Context, id, expected, next string) error
	ClearRefreshToken(ctx context.Context, id string) error
}

// Client-facing messages for session failures.
const (
	msgUnauthorizedRequest = "Unauthorized request"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgRefreshTokenUsed    = "Refresh token is expired or used"
	msgInvalidAccessToken  = "Invalid access token"
	msgPasswordTooLong     = "Password must be at most 72 bytes"
)

// LoginRequest identifies the account by username or email.
type LoginRequest struct {
	Username string
	Email    string
	Password string
}

// LoginResult carries the sanitized user together with the new session.
type LoginResult struct {
	User   models.PublicUser
	Tokens models.SessionTokens
}

// Manager orchestrates login, logout, refresh rotation and password changes.
// Each user holds a single refresh token slot, so issuing a session replaces
// any earlier one.
type Manager struct {
	users  CredentialStore
	hasher PasswordHasher
	tokens *TokenService
}

// NewManager constructs a Manager.
func NewManager(users CredentialStore, hasher PasswordHasher, tokens *TokenService) *Manager {
	if users == nil || hasher == nil || tokens == nil {
		panic("auth: session manager dependencies must not be nil")
	}
	return &Manager{users: users, hasher: hasher, tokens: tokens}
}

// Login verifies the credentials and starts a new session.
func (m *Manager) Login(ctx context.Context, req LoginRequest) (result LoginResult, err error) {
	ctx, span := logging.StartSpan(ctx, "session.login")
	defer func() { span.End(err) }()

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" && email == "" {
		return LoginResult{}, apperrors.Validation("username or email is required")
	}
	if req.Password == "" {
		return LoginResult{}, apperrors.Validation("password is required")
	}

	user, err := m.users.FindByIdentity(ctx, username, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return LoginResult{}, apperrors.NotFound("User does not exist")
		}
		return LoginResult{}, apperrors.Internal("Failed to look up user", err)
	}

	if err := m.hasher.Verify(user.Password, req.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return LoginResult{}, apperrors.Unauthorized("Invalid user credentials")
		}
		return LoginResult{}, apperrors.Internal("Failed to verify credentials", err)
	}

	tokens, err := m.issue(user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return LoginResult{}, apperrors.Internal("Failed to create session", err)
	}

	logging.FromContext(ctx).Info("user logged in", "userId", user.ID)
	return LoginResult{User: user.Public(), Tokens: tokens}, nil
}

// Logout clears the user's refresh token slot so no stored token can be exchanged.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.Unauthorized(msgUnauthorizedRequest)
	}
	if err := m.users.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.Unauthorized(msgUnauthorizedRequest)
		}
		return apperrors.Internal("Failed to end session", err)
	}
	logging.FromContext(ctx).Info("user logged out", "userId", userID)
	return nil
}

// Refresh exchanges the current refresh token for a new token pair. A token
// that does not match the stored slot has already been exchanged or revoked
// and is rejected even when its signature is still valid.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (tokens models.SessionTokens, err error) {
	ctx, span := logging.StartSpan(ctx, "session.refresh")
	defer func() { span.End(err) }()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return models.SessionTokens{}, apperrors.Unauthorized(msgUnauthorizedRequest)
	}

	claims, err := m.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return models.SessionTokens{}, &apperrors.Error{Kind: apperrors.KindUnauthorized, Message: msgInvalidRefreshToken, Err: err}
	}

	user, err := m.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, apperrors.Unauthorized(msgInvalidRefreshToken)
		}
		return models.SessionTokens{}, apperrors.Internal("Failed to look up user", err)
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		logging.FromContext(ctx).Warn("stale refresh token presented", "userId", user.ID)
		return models.SessionTokens{}, apperrors.Unauthorized(msgRefreshTokenUsed)
	}

	tokens, err = m.issue(user.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.SwapRefreshToken(ctx, user.ID, refreshToken, tokens.RefreshToken); err != nil {
		if errors.Is(err, repositories.ErrTokenMismatch) {
			logging.FromContext(ctx).Warn("concurrent refresh lost rotation race", "userId", user.ID)
			return models.SessionTokens{}, apperrors.Unauthorized(msgRefreshTokenUsed)
		}
		return models.SessionTokens{}, apperrors.Internal("Failed to rotate session", err)
	}

	return tokens, nil
}

// ChangePassword replaces the user's password after verifying the old one. The
// session is rotated as well, so refresh tokens held elsewhere stop working.
func (m *Manager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (tokens models.SessionTokens, err error) {
	ctx, span := logging.StartSpan(ctx, "session.change_password")
	defer func() { span.End(err) }()

	if oldPassword == "" || newPassword == "" {
		return models.SessionTokens{}, apperrors.Validation("old and new password are required")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return models.SessionTokens{}, &apperrors.Error{Kind: apperrors.KindValidation, Message: msgPasswordTooLong, Err: err}
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, apperrors.Unauthorized(msgUnauthorizedRequest)
		}
		return models.SessionTokens{}, apperrors.Internal("Failed to look up user", err)
	}

	if err := m.hasher.Verify(user.Password, oldPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.SessionTokens{}, &apperrors.Error{Kind: apperrors.KindValidation, Message: "Invalid old password", Err: err}
		}
		return models.SessionTokens{}, apperrors.Internal("Failed to verify credentials", err)
	}

	hashed, err := m.hasher.Hash(newPassword)
	if errors.Is(err, ErrPasswordTooLong) {
		return models.SessionTokens{}, &apperrors.Error{Kind: apperrors.KindValidation, Message: msgPasswordTooLong, Err: err}
	}
	if err != nil {
		return models.SessionTokens{}, apperrors.Internal("Failed to secure password", err)
	}

	if _, err := m.users.UpdateFields(ctx, user.ID, models.UserPatch{Password: &hashed}); err != nil {
		return models.SessionTokens{}, apperrors.Internal("Failed to update password", err)
	}

	tokens, err = m.issue(user.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, apperrors.Internal("Failed to rotate session", err)
	}

	logging.FromContext(ctx).Info("password changed", "userId", user.ID)
	return tokens, nil
}

// Authenticate verifies an access token and loads the user it belongs to.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return models.User{}, apperrors.Unauthorized(msgUnauthorizedRequest)
	}

	claims, err := m.tokens.VerifyAccess(accessToken)
	if err != nil {
		return models.User{}, &apperrors.Error{Kind: apperrors.KindUnauthorized, Message: msgInvalidAccessToken, Err: err}
	}

	user, err := m.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperrors.Unauthorized(msgInvalidAccessToken)
		}
		return models.User{}, apperrors.Internal("Failed to look up user", err)
	}

	return user, nil
}

func (m *Manager) issue(userID string) (models.SessionTokens, error) {
	accessToken, accessExp, err := m.tokens.IssueAccessToken(userID)
	if err != nil {
		return models.SessionTokens{}, apperrors.Internal("Failed to issue access token", err)
	}
	refreshToken, refreshExp, err := m.tokens.IssueRefreshToken(userID)
	if err != nil {
		return models.SessionTokens{}, apperrors.Internal("Failed to issue refresh token", err)
	}
	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}
