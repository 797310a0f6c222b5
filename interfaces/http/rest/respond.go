// Package rest exposes the HTTP API: a chi router, JWT authentication and
// thin handlers that translate between request DTOs and the service layer.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

type errorResponse struct {
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps application errors onto HTTP statuses and emits the
// symbolic reason code the clients dispatch on.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Reason: "internal_error"})
		return
	}

	reason := appErr.Code
	if reason == "" {
		reason = "internal_error"
	}
	switch appErr.Type {
	case appErrors.ErrorTypeValidation:
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: reason})
	case appErrors.ErrorTypeNotFound:
		writeJSON(w, http.StatusNotFound, errorResponse{Reason: reason})
	case appErrors.ErrorTypeConflict:
		writeJSON(w, http.StatusConflict, errorResponse{Reason: reason})
	default:
		logger.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Reason: reason})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "bad_request"})
		return false
	}
	return true
}
