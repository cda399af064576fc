package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/logging"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	Database HealthChecker
	Timeout  time.Duration
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := healthResponse{Status: "ok", Database: "unchecked"}
	if h.Database != nil {
		timeout := h.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := h.Database(checkCtx); err != nil {
			logging.FromContext(ctx).Error("database health check failed", "error", err)
			respondError(ctx, w, &apperrors.Error{Kind: apperrors.KindUnavailable, Message: "Database unavailable", Err: err})
			return
		}
		resp.Database = "ok"
	}

	respondSuccess(ctx, w, http.StatusOK, resp, "Service healthy")
}
