package accounts

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// ImageUploader moves a locally received image into the object store.
type ImageUploader interface {
	UploadImage(ctx context.Context, localPath string) (media.Asset, error)
}

// RegisterInput carries the fields of a registration form. The paths point at
// files already written to local disk.
type RegisterInput struct {
	FullName       string
	Username       string
	Email          string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// Service implements account management and channel profiles.
type Service struct {
	users         repositories.UserRepository
	subscriptions repositories.SubscriptionRepository
	images        ImageUploader
	hasher        auth.PasswordHasher
	cache         ProfileCache

	// generation advances on every invalidation. A profile read from the
	// store is cached only if no invalidation happened while it was loading.
	generation atomic.Uint64

	now   func() time.Time
	newID func() string
}

// NewService constructs a Service. A nil cache disables profile caching.
func NewService(users repositories.UserRepository, subscriptions repositories.SubscriptionRepository, images ImageUploader, hasher auth.PasswordHasher, cache ProfileCache) *Service {
	if users == nil || subscriptions == nil || images == nil || hasher == nil {
		panic("accounts: service dependencies must not be nil")
	}
	return &Service{
		users:         users,
		subscriptions: subscriptions,
		images:        images,
		hasher:        hasher,
		cache:         cache,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

// Register creates a new account and returns the stored, sanitized user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.PublicUser, error) {
	fullName := strings.TrimSpace(in.FullName)
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if fullName == "" || username == "" || email == "" || strings.TrimSpace(in.Password) == "" {
		return models.PublicUser{}, apperrors.Validation("All fields are required")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return models.PublicUser{}, passwordTooLong(err)
	}

	if _, err := s.users.FindByIdentity(ctx, username, email); err == nil {
		return models.PublicUser{}, apperrors.Conflict("User with email or username already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.PublicUser{}, apperrors.Internal("Failed to look up user", err)
	}

	if strings.TrimSpace(in.AvatarPath) == "" {
		return models.PublicUser{}, apperrors.Validation("Avatar is required")
	}

	avatar, err := s.images.UploadImage(ctx, in.AvatarPath)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal("Failed to upload avatar", err)
	}

	var coverImage string
	if strings.TrimSpace(in.CoverImagePath) != "" {
		cover, err := s.images.UploadImage(ctx, in.CoverImagePath)
		if err != nil {
			return models.PublicUser{}, apperrors.Internal("Failed to upload cover image", err)
		}
		coverImage = cover.URL
	}

	hashed, err := s.hasher.Hash(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return models.PublicUser{}, passwordTooLong(err)
	}
	if err != nil {
		return models.PublicUser{}, apperrors.Internal("Failed to secure password", err)
	}

	now := s.now()
	user := models.User{
		ID:         s.newID(),
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Password:   hashed,
		Avatar:     avatar.URL,
		CoverImage: coverImage,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.PublicUser{}, apperrors.Conflict("User with email or username already exists")
		}
		return models.PublicUser{}, apperrors.Internal("Failed to register user", err)
	}

	created, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal("Something went wrong while registering the user", err)
	}

	logging.FromContext(ctx).Info("user registered", "userId", created.ID, "username", created.Username)
	return created.Public(), nil
}

// CurrentUser returns the sanitized record of an authenticated user.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.PublicUser{}, userLookupError(err)
	}
	return user.Public(), nil
}

// UpdateAccount changes the full name and email of a user.
func (s *Service) UpdateAccount(ctx context.Context, userID, fullName, email string) (models.PublicUser, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return models.PublicUser{}, apperrors.Validation("All fields are required")
	}

	updated, err := s.users.UpdateFields(ctx, userID, models.UserPatch{FullName: &fullName, Email: &email})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.PublicUser{}, apperrors.Conflict("Email is already in use")
		}
		return models.PublicUser{}, userLookupError(err)
	}

	s.invalidate(ctx, updated.Username)
	return updated.Public(), nil
}

// UpdateAvatar replaces the avatar with the uploaded image.
func (s *Service) UpdateAvatar(ctx context.Context, userID, localPath string) (models.PublicUser, error) {
	if strings.TrimSpace(localPath) == "" {
		return models.PublicUser{}, apperrors.Validation("Avatar file is missing")
	}
	asset, err := s.images.UploadImage(ctx, localPath)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal("Failed to upload avatar", err)
	}
	return s.applyPatch(ctx, userID, models.UserPatch{Avatar: &asset.URL})
}

// UpdateCoverImage replaces the cover image with the uploaded image.
func (s *Service) UpdateCoverImage(ctx context.Context, userID, localPath string) (models.PublicUser, error) {
	if strings.TrimSpace(localPath) == "" {
		return models.PublicUser{}, apperrors.Validation("Cover image file is missing")
	}
	asset, err := s.images.UploadImage(ctx, localPath)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal("Failed to upload cover image", err)
	}
	return s.applyPatch(ctx, userID, models.UserPatch{CoverImage: &asset.URL})
}

// DeleteAccount removes the user together with their videos and subscriptions.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return userLookupError(err)
	}
	if err := s.users.DeleteByID(ctx, user.ID); err != nil {
		return userLookupError(err)
	}
	s.invalidate(ctx, user.Username)
	logging.FromContext(ctx).Info("account deleted", "userId", user.ID)
	return nil
}

// ChannelProfile aggregates a channel's subscription counts and reports
// whether viewerID is subscribed to it.
func (s *Service) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.ChannelProfile{}, apperrors.Validation("username is missing")
	}

	profile, ok := s.cachedProfile(ctx, username)
	if !ok {
		generation := s.generation.Load()
		var err error
		profile, err = s.subscriptions.ChannelProfile(ctx, username)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return models.ChannelProfile{}, apperrors.NotFound("Channel does not exist")
			}
			return models.ChannelProfile{}, apperrors.Internal("Failed to load channel", err)
		}
		if s.cache != nil && s.generation.Load() == generation {
			s.cache.Set(ctx, profile)
		}
	}

	profile.IsSubscribed = false
	if viewerID != "" {
		subscribed, err := s.subscriptions.IsSubscribed(ctx, viewerID, profile.ID)
		if err != nil {
			return models.ChannelProfile{}, apperrors.Internal("Failed to load subscription", err)
		}
		profile.IsSubscribed = subscribed
	}

	return profile, nil
}

// ToggleSubscription subscribes subscriberID to channelID, or unsubscribes when
// already subscribed. It reports whether the subscription exists afterwards.
func (s *Service) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return false, apperrors.Validation("channel id is missing")
	}
	if channelID == subscriberID {
		return false, apperrors.Validation("You cannot subscribe to your own channel")
	}

	channel, err := s.users.FindByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, apperrors.NotFound("Channel does not exist")
		}
		return false, apperrors.Internal("Failed to load channel", err)
	}
	subscriber, err := s.users.FindByID(ctx, subscriberID)
	if err != nil {
		return false, userLookupError(err)
	}

	subscribed, err := s.subscriptions.Toggle(ctx, subscriber.ID, channel.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, apperrors.NotFound("Channel does not exist")
		}
		return false, apperrors.Internal("Failed to update subscription", err)
	}

	s.invalidate(ctx, channel.Username, subscriber.Username)
	logging.FromContext(ctx).Info("subscription toggled", "subscriberId", subscriber.ID, "channelId", channel.ID, "subscribed", subscribed)
	return subscribed, nil
}

func (s *Service) applyPatch(ctx context.Context, userID string, patch models.UserPatch) (models.PublicUser, error) {
	updated, err := s.users.UpdateFields(ctx, userID, patch)
	if err != nil {
		return models.PublicUser{}, userLookupError(err)
	}
	s.invalidate(ctx, updated.Username)
	return updated.Public(), nil
}

func (s *Service) cachedProfile(ctx context.Context, username string) (models.ChannelProfile, bool) {
	if s.cache == nil {
		return models.ChannelProfile{}, false
	}
	return s.cache.Get(ctx, username)
}

func (s *Service) invalidate(ctx context.Context, usernames ...string) {
	if s.cache == nil {
		return
	}
	s.generation.Add(1)
	s.cache.Delete(ctx, usernames...)
}

func passwordTooLong(err error) error {
	return &apperrors.Error{Kind: apperrors.KindValidation, Message: "Password must be at most 72 bytes", Err: err}
}

func userLookupError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound("User does not exist")
	}
	return apperrors.Internal("Failed to load user", err)
}
