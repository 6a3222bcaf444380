package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pdf-layer-service/internal/domain"
)

type mockAuthService struct {
	user      *domain.SupabaseUser
	err       error
	lastToken string
}

func (m *mockAuthService) ValidateToken(token string) (*domain.SupabaseUser, error) {
	m.lastToken = token
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		authErr  error
		wantBody string
	}{
		{name: "missing header", wantBody: "Authorization header required"},
		{name: "wrong scheme", header: "Token abc", wantBody: "Invalid authorization header format"},
		{name: "scheme only", header: "Bearer", wantBody: "Invalid authorization header format"},
		{name: "blank token", header: "Bearer   ", wantBody: "Token required"},
		{name: "rejected token", header: "Bearer expired", authErr: domain.ErrInvalidToken, wantBody: "Invalid token"},
		{name: "auth backend down", header: "Bearer abc", authErr: errors.New("gotrue unreachable"), wantBody: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuthService{err: tt.authErr}
			logger := NewMockHandlerLogger()
			h := NewAuthMiddleware(auth, logger).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("protected handler reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Fatalf("expected body to mention %q, got %s", tt.wantBody, rr.Body.String())
			}
			if tt.authErr != nil && auth.lastToken == "" {
				t.Fatalf("expected the token to reach the auth service")
			}
		})
	}
}

func TestAuthMiddleware_StoresUserAndToken(t *testing.T) {
	auth := &mockAuthService{user: &domain.SupabaseUser{ID: "owner-7", Email: "owner@example.com"}}

	var gotUser *domain.SupabaseUser
	var gotToken string
	h := NewAuthMiddleware(auth, NewMockHandlerLogger()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserFromContext(r)
		gotToken, _ = GetTokenFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer  padded-token ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if gotUser == nil || gotUser.ID != "owner-7" {
		t.Fatalf("expected owner-7 in context, got %+v", gotUser)
	}
	if gotToken != "padded-token" || auth.lastToken != "padded-token" {
		t.Fatalf("expected trimmed token, context %q service %q", gotToken, auth.lastToken)
	}
}
