// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/logging"
)

func claimsEcho(t *testing.T, seen **Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("claims missing from context")
		}
		*seen = c
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestNewMiddleware_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewMiddleware(nil, ModeJWT, zerolog.Nop()); err == nil {
		t.Error("jwt mode without manager should fail")
	}
	if _, err := NewMiddleware(nil, "basic", zerolog.Nop()); err == nil {
		t.Error("unknown mode should fail")
	}
	if _, err := NewMiddleware(nil, ModeNone, zerolog.Nop()); err != nil {
		t.Errorf("none mode error = %v", err)
	}
}

func TestAuthenticate_NoneMode(t *testing.T) {
	t.Parallel()

	m, _ := NewMiddleware(nil, ModeNone, zerolog.Nop())
	var seen *Claims
	rec := httptest.NewRecorder()
	m.Authenticate(claimsEcho(t, &seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen == nil || !seen.IsAdmin() {
		t.Errorf("none mode should attach admin claims, got %+v", seen)
	}
}

func TestAuthenticate_JWTMode(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t)
	m, err := NewMiddleware(mgr, ModeJWT, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	token, _ := mgr.GenerateToken("u1", RoleUser)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var seen *Claims
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = ClaimsFromContext(r.Context())
				if got := logging.UserIDFromContext(r.Context()); got != "u1" {
					t.Errorf("user id in context = %q", got)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && (seen == nil || seen.Subject != "u1") {
				t.Errorf("claims = %+v", seen)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t)
	m, _ := NewMiddleware(mgr, ModeJWT, zerolog.Nop())
	userToken, _ := mgr.GenerateToken("u1", RoleUser)
	adminToken, _ := mgr.GenerateToken("ops", RoleAdmin)

	var seen *Claims
	handler := m.Authenticate(m.RequireAdmin(claimsEcho(t, &seen)))

	for token, want := range map[string]int{userToken: http.StatusForbidden, adminToken: http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batch", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("status = %d, want %d", rec.Code, want)
		}
	}

	// Without Authenticate in front there are no claims.
	rec := httptest.NewRecorder()
	m.RequireAdmin(claimsEcho(t, &seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status without claims = %d, want 403", rec.Code)
	}
}
