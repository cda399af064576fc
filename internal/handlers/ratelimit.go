package handlers

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/vidtube/backend/internal/apperrors"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// rateLimited rejects requests over the limiter's budget for scope with 429.
func rateLimited(limiter RateLimiter, trusted []netip.Prefix, scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRequest(limiter, trusted, r, scope) {
			respondError(r.Context(), w, apperrors.TooManyRequests("Too many requests, please try again later"))
			return
		}
		next(w, r)
	}
}

func allowRequest(limiter RateLimiter, trusted []netip.Prefix, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	key := rateLimitKey(clientIP(r, trusted), scope)
	return limiter.Allow(key)
}

func rateLimitKey(ip, scope string) string {
	if scope == "" {
		return ip
	}
	return fmt.Sprintf("%s:%s", scope, ip)
}

// clientIP identifies the caller by the connection's peer address.
// X-Forwarded-For is consulted only when the peer is a trusted proxy; the
// chain is walked from the right and the first untrusted hop is the client.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		return remote
	}
	peer = peer.Unmap()
	if !isTrusted(peer, trusted) {
		return peer.String()
	}

	hops := forwardedHops(r.Header.Values("X-Forwarded-For"))
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := parseHop(hops[i])
		if !ok {
			break
		}
		client = hop
		if !isTrusted(hop, trusted) {
			break
		}
	}
	return client.String()
}

func forwardedHops(values []string) []string {
	var hops []string
	for _, value := range values {
		for _, hop := range strings.Split(value, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}

func parseHop(hop string) (netip.Addr, bool) {
	if addr, err := netip.ParseAddr(hop); err == nil {
		return addr.Unmap(), true
	}
	if addrPort, err := netip.ParseAddrPort(hop); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	return netip.Addr{}, false
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
