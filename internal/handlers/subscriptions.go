package handlers

import "net/http"

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Accounts AccountService
}

type subscriptionResponse struct {
	ChannelID  string `json:"channelId"`
	Subscribed bool   `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	channelID := r.PathValue("channelId")
	subscribed, err := h.Accounts.ToggleSubscription(ctx, userID, channelID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	message := "Unsubscribed successfully"
	if subscribed {
		message = "Subscribed successfully"
	}
	respondSuccess(ctx, w, http.StatusOK, subscriptionResponse{ChannelID: channelID, Subscribed: subscribed}, message)
}
