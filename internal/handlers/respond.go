package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/logging"
)

type successEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respondSuccess(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}
	respondJSON(ctx, w, status, successEnvelope{StatusCode: status, Data: data, Message: message, Success: true})
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperrors.From(err)
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError && appErr.Err != nil {
		logging.FromContext(ctx).Error("request error", "error", appErr.Err)
	}
	respondJSON(ctx, w, status, errorEnvelope{StatusCode: status, Message: appErr.Message, Success: false})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// maxJSONBodyBytes caps JSON request bodies.
const maxJSONBodyBytes = 16 << 10

// decodeJSON decodes a JSON body of at most maxJSONBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeJSONBody(w, r, dst, false)
}

// decodeJSONBody is decodeJSON that reports an empty body as io.EOF when
// allowEmpty is set.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return io.EOF
		}
		return apperrors.Validation("Invalid request body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case allowEmpty && errors.Is(err, io.EOF):
		return io.EOF
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &apperrors.Error{Kind: apperrors.KindPayloadTooLarge, Message: "Request body is too large", Err: err}
	}
	return &apperrors.Error{Kind: apperrors.KindValidation, Message: "Invalid request body", Err: err}
}
