package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/videos"
)

// SessionManager issues, rotates and revokes user sessions.
type SessionManager interface {
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (models.SessionTokens, error)
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// AccountService captures the account and channel operations used by the user handlers.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (models.PublicUser, error)
	CurrentUser(ctx context.Context, userID string) (models.PublicUser, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (models.PublicUser, error)
	DeleteAccount(ctx context.Context, userID string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoService captures the video lifecycle operations.
type VideoService interface {
	Publish(ctx context.Context, in videos.PublishInput) (models.Video, error)
	Get(ctx context.Context, videoID, viewerID string) (models.Video, error)
	ListByOwner(ctx context.Context, ownerID, viewerID string) ([]models.Video, error)
	UpdateDetails(ctx context.Context, videoID, ownerID string, in videos.DetailsInput) (models.Video, error)
	Delete(ctx context.Context, videoID, ownerID string) error
	TogglePublish(ctx context.Context, videoID, ownerID string) (models.Video, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error
