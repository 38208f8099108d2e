package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleAuthError maps the auth error taxonomy to HTTP responses. Messages
// for the user are the fixed domain strings; raw upstream text never leaves
// the server. Outside dev mode, transient failures are logged by error type
// only.
func handleAuthError(w http.ResponseWriter, err error, logger *zap.Logger, devMode bool) {
	var (
		validation  *domain.ErrValidation
		invalid     *domain.ErrInvalidCredentials
		unconfirmed *domain.ErrUnconfirmedAccount
		rateLimited *domain.ErrRateLimited
		notFound    *domain.ErrProfileNotFound
		inactive    *domain.ErrAccountInactive
		transient   *domain.ErrTransient
		denied      *domain.ErrPermissionDenied
	)

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalid):
		logger.Debug("invalid credentials")
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &unconfirmed):
		logger.Debug("unconfirmed account")
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &rateLimited):
		logger.Warn("rate limited sign-in")
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &notFound):
		logger.Warn("profile not found", zap.String("user_id", notFound.ID))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &inactive):
		logger.Info("inactive account sign-in")
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &denied):
		logger.Warn("permission denied", zap.String("resource", denied.Resource))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &transient):
		logger.Error("transient upstream failure", observability.SafeError(devMode, err))
		writeError(w, http.StatusServiceUnavailable, "Serviço temporariamente indisponível. Tente novamente.")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
