package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type sessionFixture struct {
	manager *Manager
	users   repositories.UserRepository
	tokens  *TokenService
	user    models.User
}

func newSessionFixture(t *testing.T) sessionFixture {
	t.Helper()

	store := repositories.NewMemoryStore()
	users := store.Users()
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hashed, err := hasher.Hash("pw123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@x.com",
		FullName: "Alice",
		Password: hashed,
		Avatar:   "https://cdn.example.com/a.png",
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tokens, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("access-secret"),
		AccessTTL:     time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	return sessionFixture{
		manager: NewManager(users, hasher, tokens),
		users:   users,
		tokens:  tokens,
		user:    user,
	}
}

func expectKind(t *testing.T, err error, kind apperrors.Kind, message string) {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %v got %v (%v)", kind, appErr.Kind, err)
	}
	if message != "" && appErr.Message != message {
		t.Fatalf("expected message %q got %q", message, appErr.Message)
	}
}

func TestManagerLoginPersistsRefreshToken(t *testing.T) {
	f := newSessionFixture(t)

	result, err := f.manager.Login(context.Background(), LoginRequest{Email: "ALICE@x.com", Password: "pw123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.ID != f.user.ID {
		t.Fatalf("unexpected user %+v", result.User)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", result.Tokens)
	}

	stored, err := f.users.FindByID(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.RefreshToken != result.Tokens.RefreshToken {
		t.Fatal("expected refresh token to be stored on the user")
	}

	claims, err := f.tokens.VerifyAccess(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UserID() != f.user.ID {
		t.Fatalf("expected subject %s got %s", f.user.ID, claims.UserID())
	}
}

func TestManagerLoginFailures(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.manager.Login(context.Background(), LoginRequest{Username: "nobody", Password: "pw123"})
	expectKind(t, err, apperrors.KindNotFound, "User does not exist")

	_, err = f.manager.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	expectKind(t, err, apperrors.KindUnauthorized, "Invalid user credentials")

	_, err = f.manager.Login(context.Background(), LoginRequest{Password: "pw123"})
	expectKind(t, err, apperrors.KindValidation, "")

	stored, err := f.users.FindByID(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatal("failed logins must not create a session")
	}
}

func TestManagerRefreshRotatesAndRejectsReplay(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "pw123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := f.manager.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == login.Tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	stored, err := f.users.FindByID(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.RefreshToken != rotated.RefreshToken {
		t.Fatal("expected the rotated token to replace the stored one")
	}

	_, err = f.manager.Refresh(ctx, login.Tokens.RefreshToken)
	expectKind(t, err, apperrors.KindUnauthorized, "Refresh token is expired or used")

	if _, err := f.manager.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("latest token should still refresh: %v", err)
	}
}

func TestManagerRefreshRejectsInvalidTokens(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.manager.Refresh(ctx, "")
	expectKind(t, err, apperrors.KindUnauthorized, "Unauthorized request")

	_, err = f.manager.Refresh(ctx, "not-a-jwt")
	expectKind(t, err, apperrors.KindUnauthorized, "Invalid refresh token")

	access, _, err := f.tokens.IssueAccessToken(f.user.ID)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	_, err = f.manager.Refresh(ctx, access)
	expectKind(t, err, apperrors.KindUnauthorized, "Invalid refresh token")

	orphan, _, err := f.tokens.IssueRefreshToken("missing-user")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	_, err = f.manager.Refresh(ctx, orphan)
	expectKind(t, err, apperrors.KindUnauthorized, "Invalid refresh token")
}

func TestManagerRefreshExpiredToken(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "pw123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	f.tokens.WithNowFunc(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, err = f.manager.Refresh(ctx, login.Tokens.RefreshToken)
	expectKind(t, err, apperrors.KindUnauthorized, "Invalid refresh token")
}

func TestManagerLogoutRevokesRefresh(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "pw123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.manager.Logout(ctx, f.user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := f.manager.Logout(ctx, f.user.ID); err != nil {
		t.Fatalf("second logout should be harmless: %v", err)
	}

	_, err = f.manager.Refresh(ctx, login.Tokens.RefreshToken)
	expectKind(t, err, apperrors.KindUnauthorized, "Refresh token is expired or used")

	expectKind(t, f.manager.Logout(ctx, ""), apperrors.KindUnauthorized, "")
}

func TestManagerChangePasswordRotatesSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "pw123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = f.manager.ChangePassword(ctx, f.user.ID, "wrong", "next")
	expectKind(t, err, apperrors.KindValidation, "Invalid old password")

	tokens, err := f.manager.ChangePassword(ctx, f.user.ID, "pw123", "next-pass")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}

	_, err = f.manager.Refresh(ctx, login.Tokens.RefreshToken)
	expectKind(t, err, apperrors.KindUnauthorized, "Refresh token is expired or used")

	if _, err := f.manager.Refresh(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("new session should refresh: %v", err)
	}

	_, err = f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "pw123"})
	expectKind(t, err, apperrors.KindUnauthorized, "Invalid user credentials")
	if _, err := f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "next-pass"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestManagerChangePasswordRejectsLongPassword(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "pw123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = f.manager.ChangePassword(ctx, f.user.ID, "pw123", strings.Repeat("a", MaxPasswordBytes+1))
	expectKind(t, err, apperrors.KindValidation, "Password must be at most 72 bytes")

	if _, err := f.manager.Refresh(ctx, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("rejected change must keep the session: %v", err)
	}
	if _, err := f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "pw123"}); err != nil {
		t.Fatalf("rejected change must keep the old password: %v", err)
	}
}

func TestManagerAuthenticate(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.manager.Login(ctx, LoginRequest{Username: "alice", Password: "pw123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := f.manager.Authenticate(ctx, login.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != f.user.ID {
		t.Fatalf("unexpected user %s", user.ID)
	}

	_, err = f.manager.Authenticate(ctx, login.Tokens.RefreshToken)
	expectKind(t, err, apperrors.KindUnauthorized, "Invalid access token")

	_, err = f.manager.Authenticate(ctx, "")
	expectKind(t, err, apperrors.KindUnauthorized, "Unauthorized request")
}

func TestNewManagerPanicsOnNilDependencies(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewManager(nil, nil, nil)
}
