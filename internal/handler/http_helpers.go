package handler

import (
	"encoding/json"
	"net/http"

	"pdf-layer-service/internal/domain"
	apperrors "pdf-layer-service/pkg/errors"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) (*domain.SupabaseUser, bool) {
	user, ok := r.Context().Value(userContextKey).(*domain.SupabaseUser)
	return user, ok
}

// GetTokenFromContext extracts the authentication token from request context
func GetTokenFromContext(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenContextKey).(string)
	return token, ok
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError maps err to its status code. Internal causes are logged,
// not returned to the client.
func writeServiceError(w http.ResponseWriter, logger domain.Logger, err error) {
	appErr := apperrors.FromDomain(err)
	if apperrors.IsType(appErr, apperrors.ErrorTypeInternal) {
		logger.Error("Request failed", err)
	}
	body := map[string]string{"error": appErr.Message}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	writeJSON(w, appErr.StatusCode, body)
}
