package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type stubImages struct {
	uploaded []string
	err      error
}

func (s *stubImages) UploadImage(_ context.Context, localPath string) (media.Asset, error) {
	if s.err != nil {
		return media.Asset{}, s.err
	}
	s.uploaded = append(s.uploaded, localPath)
	return media.Asset{URL: "https://cdn.example.com/" + strings.TrimPrefix(localPath, "/tmp/")}, nil
}

type countingCache struct {
	*MemoryProfileCache
	deletes []string
}

func (c *countingCache) Delete(ctx context.Context, usernames ...string) {
	c.deletes = append(c.deletes, usernames...)
	c.MemoryProfileCache.Delete(ctx, usernames...)
}

type serviceFixture struct {
	service *Service
	store   *repositories.MemoryStore
	images  *stubImages
	cache   *countingCache
	hasher  auth.PasswordHasher
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	images := &stubImages{}
	cache := &countingCache{MemoryProfileCache: NewMemoryProfileCache(0)}
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	return serviceFixture{
		service: NewService(store.Users(), store.Subscriptions(), images, hasher, cache),
		store:   store,
		images:  images,
		cache:   cache,
		hasher:  hasher,
	}
}

func (f serviceFixture) register(t *testing.T, username string) models.PublicUser {
	t.Helper()
	user, err := f.service.Register(context.Background(), RegisterInput{
		FullName:   strings.ToUpper(username[:1]) + username[1:],
		Username:   username,
		Email:      username + "@x.com",
		Password:   "pw123",
		AvatarPath: "/tmp/" + username + ".png",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func expectKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if !apperrors.Is(err, kind) {
		t.Fatalf("expected %v error, got %v", kind, err)
	}
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, RegisterInput{
		FullName:       " Alice ",
		Username:       "Alice",
		Email:          "ALICE@x.com",
		Password:       "pw123",
		AvatarPath:     "/tmp/avatar.png",
		CoverImagePath: "/tmp/cover.png",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Username != "alice" || user.Email != "alice@x.com" || user.FullName != "Alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Avatar != "https://cdn.example.com/avatar.png" || user.CoverImage != "https://cdn.example.com/cover.png" {
		t.Fatalf("unexpected media urls %+v", user)
	}

	stored, err := f.store.Users().FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Password == "pw123" {
		t.Fatal("password must be stored hashed")
	}
	if err := f.hasher.Verify(stored.Password, "pw123"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatal("registration must not start a session")
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, RegisterInput{FullName: "A", Username: " ", Email: "a@x.com", Password: "pw", AvatarPath: "/tmp/a.png"})
	expectKind(t, err, apperrors.KindValidation)

	_, err = f.service.Register(ctx, RegisterInput{FullName: "A", Username: "a", Email: "a@x.com", Password: "pw"})
	expectKind(t, err, apperrors.KindValidation)
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Message != "Avatar is required" {
		t.Fatalf("unexpected message %q", appErr.Message)
	}

	f.register(t, "alice")
	_, err = f.service.Register(ctx, RegisterInput{FullName: "B", Username: "bob", Email: "ALICE@x.com", Password: "pw", AvatarPath: "/tmp/b.png"})
	expectKind(t, err, apperrors.KindConflict)
	_, err = f.service.Register(ctx, RegisterInput{FullName: "B", Username: "ALICE", Email: "b@x.com", Password: "pw", AvatarPath: "/tmp/b.png"})
	expectKind(t, err, apperrors.KindConflict)

	if len(f.images.uploaded) != 1 {
		t.Fatalf("rejected registrations must not upload, got %v", f.images.uploaded)
	}
}

func TestRegisterRejectsLongPassword(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Register(context.Background(), RegisterInput{
		FullName:   "A",
		Username:   "a",
		Email:      "a@x.com",
		Password:   strings.Repeat("a", auth.MaxPasswordBytes+1),
		AvatarPath: "/tmp/a.png",
	})
	expectKind(t, err, apperrors.KindValidation)
	if !errors.Is(err, auth.ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong cause, got %v", err)
	}
	if len(f.images.uploaded) != 0 {
		t.Fatalf("rejected registrations must not upload, got %v", f.images.uploaded)
	}
	if _, err := f.store.Users().FindByUsername(context.Background(), "a"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected no user to be stored, got %v", err)
	}
}

func TestRegisterUploadFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.images.err = errors.New("bucket unavailable")

	_, err := f.service.Register(context.Background(), RegisterInput{FullName: "A", Username: "a", Email: "a@x.com", Password: "pw", AvatarPath: "/tmp/a.png"})
	expectKind(t, err, apperrors.KindInternal)
}

func TestUpdateAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	f.register(t, "bob")

	updated, err := f.service.UpdateAccount(ctx, alice.ID, "Alice Liddell", "Alice@Wonder.land")
	if err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if updated.FullName != "Alice Liddell" || updated.Email != "alice@wonder.land" {
		t.Fatalf("unexpected user %+v", updated)
	}
	if len(f.cache.deletes) == 0 || f.cache.deletes[len(f.cache.deletes)-1] != "alice" {
		t.Fatalf("expected alice's cached profile to be invalidated, got %v", f.cache.deletes)
	}

	_, err = f.service.UpdateAccount(ctx, alice.ID, "Alice", "bob@x.com")
	expectKind(t, err, apperrors.KindConflict)

	_, err = f.service.UpdateAccount(ctx, alice.ID, "", "a@x.com")
	expectKind(t, err, apperrors.KindValidation)

	_, err = f.service.UpdateAccount(ctx, "missing", "A", "missing@x.com")
	expectKind(t, err, apperrors.KindNotFound)
}

func TestUpdateImages(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	updated, err := f.service.UpdateAvatar(ctx, alice.ID, "/tmp/new-avatar.png")
	if err != nil {
		t.Fatalf("UpdateAvatar() error = %v", err)
	}
	if updated.Avatar != "https://cdn.example.com/new-avatar.png" {
		t.Fatalf("unexpected avatar %q", updated.Avatar)
	}

	updated, err = f.service.UpdateCoverImage(ctx, alice.ID, "/tmp/new-cover.png")
	if err != nil {
		t.Fatalf("UpdateCoverImage() error = %v", err)
	}
	if updated.CoverImage != "https://cdn.example.com/new-cover.png" {
		t.Fatalf("unexpected cover %q", updated.CoverImage)
	}

	_, err = f.service.UpdateAvatar(ctx, alice.ID, "")
	expectKind(t, err, apperrors.KindValidation)
	_, err = f.service.UpdateCoverImage(ctx, alice.ID, "")
	expectKind(t, err, apperrors.KindValidation)
}

func TestChannelProfileAggregation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	for _, subscriber := range []string{bob.ID, carol.ID} {
		subscribed, err := f.service.ToggleSubscription(ctx, subscriber, alice.ID)
		if err != nil || !subscribed {
			t.Fatalf("subscribe: subscribed=%v err=%v", subscribed, err)
		}
	}
	if _, err := f.service.ToggleSubscription(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("subscribe alice to bob: %v", err)
	}

	profile, err := f.service.ChannelProfile(ctx, "ALICE", bob.ID)
	if err != nil {
		t.Fatalf("ChannelProfile() error = %v", err)
	}
	if profile.SubscribersCount != 2 || profile.ChannelsSubscribedToCount != 1 || !profile.IsSubscribed {
		t.Fatalf("unexpected profile %+v", profile)
	}

	profile, err = f.service.ChannelProfile(ctx, "alice", alice.ID)
	if err != nil {
		t.Fatalf("ChannelProfile() error = %v", err)
	}
	if profile.IsSubscribed {
		t.Fatal("a viewer is never subscribed to their own channel")
	}
	if _, ok := f.cache.MemoryProfileCache.Get(ctx, "alice"); !ok {
		t.Fatal("expected profile to be cached")
	}

	subscribed, err := f.service.ToggleSubscription(ctx, bob.ID, alice.ID)
	if err != nil || subscribed {
		t.Fatalf("unsubscribe: subscribed=%v err=%v", subscribed, err)
	}
	profile, err = f.service.ChannelProfile(ctx, "alice", bob.ID)
	if err != nil {
		t.Fatalf("ChannelProfile() error = %v", err)
	}
	if profile.SubscribersCount != 1 || profile.IsSubscribed {
		t.Fatalf("expected invalidated profile, got %+v", profile)
	}

	_, err = f.service.ChannelProfile(ctx, "nobody", bob.ID)
	expectKind(t, err, apperrors.KindNotFound)
	_, err = f.service.ChannelProfile(ctx, " ", bob.ID)
	expectKind(t, err, apperrors.KindValidation)
}

// racingSubscriptions runs during once the profile has been read, simulating
// a write that lands before the reader fills the cache.
type racingSubscriptions struct {
	repositories.SubscriptionRepository
	during func()
}

func (r *racingSubscriptions) ChannelProfile(ctx context.Context, username string) (models.ChannelProfile, error) {
	profile, err := r.SubscriptionRepository.ChannelProfile(ctx, username)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return profile, err
}

func TestChannelProfileSkipsCacheFillAfterConcurrentInvalidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	subscriptions := &racingSubscriptions{SubscriptionRepository: f.store.Subscriptions()}
	service := NewService(f.store.Users(), subscriptions, f.images, f.hasher, f.cache)
	subscriptions.during = func() {
		if _, err := service.ToggleSubscription(ctx, bob.ID, alice.ID); err != nil {
			t.Errorf("toggle: %v", err)
		}
	}

	stale, err := service.ChannelProfile(ctx, "alice", "")
	if err != nil {
		t.Fatalf("ChannelProfile() error = %v", err)
	}
	if stale.SubscribersCount != 0 {
		t.Fatalf("expected the pre-toggle snapshot, got %+v", stale)
	}
	if _, ok := f.cache.MemoryProfileCache.Get(ctx, "alice"); ok {
		t.Fatal("a profile loaded across an invalidation must not be cached")
	}

	fresh, err := service.ChannelProfile(ctx, "alice", bob.ID)
	if err != nil {
		t.Fatalf("ChannelProfile() error = %v", err)
	}
	if fresh.SubscribersCount != 1 || !fresh.IsSubscribed {
		t.Fatalf("expected fresh profile, got %+v", fresh)
	}
	if _, ok := f.cache.MemoryProfileCache.Get(ctx, "alice"); !ok {
		t.Fatal("expected an undisturbed load to be cached")
	}
}

func TestToggleSubscriptionValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	_, err := f.service.ToggleSubscription(ctx, alice.ID, alice.ID)
	expectKind(t, err, apperrors.KindValidation)

	_, err = f.service.ToggleSubscription(ctx, alice.ID, "missing")
	expectKind(t, err, apperrors.KindNotFound)

	_, err = f.service.ToggleSubscription(ctx, alice.ID, "")
	expectKind(t, err, apperrors.KindValidation)
}

func TestDeleteAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	if _, err := f.service.ToggleSubscription(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := f.service.DeleteAccount(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	_, err := f.service.CurrentUser(ctx, alice.ID)
	expectKind(t, err, apperrors.KindNotFound)

	profile, err := f.service.ChannelProfile(ctx, "bob", "")
	if err != nil {
		t.Fatalf("ChannelProfile() error = %v", err)
	}
	if profile.ChannelsSubscribedToCount != 0 {
		t.Fatalf("expected subscriptions to be removed, got %+v", profile)
	}

	expectKind(t, f.service.DeleteAccount(ctx, alice.ID), apperrors.KindNotFound)
}

func TestServiceWithoutCache(t *testing.T) {
	store := repositories.NewMemoryStore()
	service := NewService(store.Users(), store.Subscriptions(), &stubImages{}, auth.NewBcryptHasher(bcrypt.MinCost), nil)

	user, err := service.Register(context.Background(), RegisterInput{FullName: "A", Username: "a", Email: "a@x.com", Password: "pw", AvatarPath: "/tmp/a.png"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	profile, err := service.ChannelProfile(context.Background(), "a", "")
	if err != nil {
		t.Fatalf("ChannelProfile() error = %v", err)
	}
	if profile.ID != user.ID {
		t.Fatalf("unexpected profile %+v", profile)
	}
}
