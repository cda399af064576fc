package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// SubscriptionRepository manages channel subscriptions and the profile
// aggregation derived from them.
type SubscriptionRepository interface {
	// Toggle subscribes when no subscription exists and unsubscribes otherwise,
	// reporting whether the subscriber is subscribed afterwards.
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
	// ChannelProfile resolves the channel and its subscription counts. The
	// IsSubscribed field is always false.
	ChannelProfile(ctx context.Context, username string) (models.ChannelProfile, error)
}
