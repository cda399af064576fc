package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/models"
)

type subscriptionKey struct {
	subscriber string
	channel    string
}

// MemoryStore implements the user, subscription and video repositories in
// memory for tests and local development.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	videos        map[string]models.Video
	subscriptions map[subscriptionKey]time.Time
	now           func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]models.User),
		videos:        make(map[string]models.Video),
		subscriptions: make(map[subscriptionKey]time.Time),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Users exposes the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Videos exposes the store as a VideoRepository.
func (s *MemoryStore) Videos() VideoRepository { return memoryVideos{s} }

// Subscriptions exposes the store as a SubscriptionRepository.
func (s *MemoryStore) Subscriptions() SubscriptionRepository { return memorySubscriptions{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(_ context.Context, user models.User) error {
	if strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("insert user without password hash: %w", ErrInvalidRecord)
	}
	user.Username = strings.ToLower(user.Username)
	user.Email = strings.ToLower(user.Email)

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, exists := m.s.users[user.ID]; exists {
		return ErrConflict
	}
	for _, existing := range m.s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return ErrConflict
		}
	}
	m.s.users[user.ID] = user
	return nil
}

func (m memoryUsers) FindByID(_ context.Context, id string) (models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	user, ok := m.s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (m memoryUsers) FindByIdentity(_ context.Context, username, email string) (models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	for _, user := range m.s.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m memoryUsers) FindByUsername(ctx context.Context, username string) (models.User, error) {
	if strings.TrimSpace(username) == "" {
		return models.User{}, ErrNotFound
	}
	return m.FindByIdentity(ctx, username, "")
}

func (m memoryUsers) UpdateFields(_ context.Context, id string, patch models.UserPatch) (models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	user, ok := m.s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}

	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		for otherID, other := range m.s.users {
			if otherID != id && other.Email == email {
				return models.User{}, ErrConflict
			}
		}
		user.Email = email
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	if patch.CoverImage != nil {
		user.CoverImage = *patch.CoverImage
	}
	if patch.Password != nil {
		user.Password = *patch.Password
	}
	user.UpdatedAt = m.s.now()

	m.s.users[id] = user
	return user, nil
}

func (m memoryUsers) DeleteByID(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.users, id)

	for videoID, video := range m.s.videos {
		if video.OwnerID == id {
			delete(m.s.videos, videoID)
		}
	}
	for key := range m.s.subscriptions {
		if key.subscriber == id || key.channel == id {
			delete(m.s.subscriptions, key)
		}
	}
	return nil
}

func (m memoryUsers) SetRefreshToken(_ context.Context, id, token string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	user, ok := m.s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.RefreshToken = token
	m.s.users[id] = user
	return nil
}

func (m memoryUsers) SwapRefreshToken(_ context.Context, id, expected, next string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	user, ok := m.s.users[id]
	if !ok || user.RefreshToken == "" || user.RefreshToken != expected {
		return ErrTokenMismatch
	}
	user.RefreshToken = next
	m.s.users[id] = user
	return nil
}

func (m memoryUsers) ClearRefreshToken(ctx context.Context, id string) error {
	return m.SetRefreshToken(ctx, id, "")
}

type memoryVideos struct{ s *MemoryStore }

func (m memoryVideos) Create(_ context.Context, video models.Video) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, exists := m.s.videos[video.ID]; exists {
		return ErrConflict
	}
	if _, ok := m.s.users[video.OwnerID]; !ok {
		return ErrNotFound
	}
	m.s.videos[video.ID] = video
	return nil
}

func (m memoryVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	video, ok := m.s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

func (m memoryVideos) ListByOwner(_ context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var videos []models.Video
	for _, video := range m.s.videos {
		if video.OwnerID != ownerID {
			continue
		}
		if !video.IsPublished && !includeUnpublished {
			continue
		}
		videos = append(videos, video)
	}
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

func (m memoryVideos) Update(_ context.Context, id string, patch models.VideoPatch) (models.Video, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	video, ok := m.s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	if patch.Title != nil {
		video.Title = *patch.Title
	}
	if patch.Description != nil {
		video.Description = *patch.Description
	}
	if patch.Thumbnail != nil {
		video.Thumbnail = *patch.Thumbnail
	}
	video.UpdatedAt = m.s.now()
	m.s.videos[id] = video
	return video, nil
}

func (m memoryVideos) TogglePublished(_ context.Context, id string) (models.Video, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	video, ok := m.s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	video.UpdatedAt = m.s.now()
	m.s.videos[id] = video
	return video, nil
}

func (m memoryVideos) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.videos[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.videos, id)
	return nil
}

type memorySubscriptions struct{ s *MemoryStore }

func (m memorySubscriptions) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	key := subscriptionKey{subscriber: subscriberID, channel: channelID}
	if _, ok := m.s.subscriptions[key]; ok {
		delete(m.s.subscriptions, key)
		return false, nil
	}

	if _, ok := m.s.users[subscriberID]; !ok {
		return false, ErrNotFound
	}
	if _, ok := m.s.users[channelID]; !ok {
		return false, ErrNotFound
	}
	m.s.subscriptions[key] = m.s.now()
	return true, nil
}

func (m memorySubscriptions) IsSubscribed(_ context.Context, subscriberID, channelID string) (bool, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	_, ok := m.s.subscriptions[subscriptionKey{subscriber: subscriberID, channel: channelID}]
	return ok, nil
}

func (m memorySubscriptions) ChannelProfile(_ context.Context, username string) (models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var (
		channel models.User
		found   bool
	)
	for _, user := range m.s.users {
		if username != "" && user.Username == username {
			channel, found = user, true
			break
		}
	}
	if !found {
		return models.ChannelProfile{}, ErrNotFound
	}

	profile := models.ChannelProfile{
		ID:         channel.ID,
		Username:   channel.Username,
		Email:      channel.Email,
		FullName:   channel.FullName,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
	}
	for key := range m.s.subscriptions {
		if key.channel == channel.ID {
			profile.SubscribersCount++
		}
		if key.subscriber == channel.ID {
			profile.ChannelsSubscribedToCount++
		}
	}
	return profile, nil
}

var _ UserRepository = memoryUsers{}
var _ VideoRepository = memoryVideos{}
var _ SubscriptionRepository = memorySubscriptions{}
