package handlers

import (
	"net/http"
	"net/netip"
)

const apiPrefix = "/api/v1"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions    SessionManager
	Accounts    AccountService
	Videos      VideoService
	RateLimiter RateLimiter
	Cookies     CookieSettings
	Uploads     UploadSettings
	Database    HealthChecker
	Metrics     http.Handler
	// TrustedProxies are the peers allowed to report the client address
	// through X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Database: deps.Database}
	sessions := AuthHandler{Sessions: deps.Sessions, Cookies: deps.Cookies}
	users := UserHandler{Accounts: deps.Accounts, Cookies: deps.Cookies, Uploads: deps.Uploads}
	subscriptions := SubscriptionHandler{Accounts: deps.Accounts}
	videos := VideoHandler{Videos: deps.Videos, Uploads: deps.Uploads}

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return requireUser(deps.Sessions, next)
	}
	route := func(method, path string, handler http.HandlerFunc) {
		mux.HandleFunc(method+" "+apiPrefix+path, handler)
	}

	mux.HandleFunc("GET /healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	route("POST", "/users/register", rateLimited(deps.RateLimiter, deps.TrustedProxies, "register", users.Register))
	route("POST", "/users/login", rateLimited(deps.RateLimiter, deps.TrustedProxies, "login", sessions.Login))
	route("POST", "/users/refresh-token", rateLimited(deps.RateLimiter, deps.TrustedProxies, "refresh", sessions.Refresh))
	route("POST", "/users/logout", authed(sessions.Logout))
	route("POST", "/users/change-password", authed(sessions.ChangePassword))
	route("GET", "/users/current-user", authed(users.CurrentUser))
	route("PATCH", "/users/update-account", authed(users.UpdateAccount))
	route("PATCH", "/users/avatar", authed(users.UpdateAvatar))
	route("PATCH", "/users/cover-image", authed(users.UpdateCoverImage))
	route("DELETE", "/users/me", authed(users.DeleteAccount))
	route("GET", "/users/c/{username}", authed(users.ChannelProfile))

	route("POST", "/subscriptions/c/{channelId}", authed(subscriptions.Toggle))

	route("POST", "/videos", authed(videos.Publish))
	route("GET", "/videos/{videoId}", authed(videos.Get))
	route("GET", "/videos/channel/{ownerId}", authed(videos.ListByOwner))
	route("PATCH", "/videos/{videoId}", authed(videos.Update))
	route("DELETE", "/videos/{videoId}", authed(videos.Delete))
	route("PATCH", "/videos/toggle/publish/{videoId}", authed(videos.TogglePublish))
}
