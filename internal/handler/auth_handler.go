package handler

import (
	"net/http"

	"pdf-layer-service/internal/domain"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	logger domain.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(logger domain.Logger) *AuthHandler {
	return &AuthHandler{
		logger: logger,
	}
}

// GetProfile returns the current user's profile information
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ValidateToken answers 200 when the middleware accepted the bearer token.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"user_id": user.ID,
	})
}
