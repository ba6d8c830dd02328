// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the validated *Claims on authenticated requests.
const ClaimsContextKey contextKey = "claims"

// Auth modes.
const (
	ModeNone = "none"
	ModeJWT  = "jwt"
)

// Middleware enforces bearer-token authentication. In ModeNone every
// request is treated as an anonymous admin.
type Middleware struct {
	jwtManager *JWTManager
	authMode   string
	logger     zerolog.Logger
}

// NewMiddleware creates the middleware. jwtManager may be nil in ModeNone.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMiddleware(jwtManager *JWTManager, authMode string, logger zerolog.Logger) (*Middleware, error) {
	if authMode == ModeJWT && jwtManager == nil {
		return nil, fmt.Errorf("jwt auth mode requires a JWT manager")
	}
	if authMode != ModeJWT && authMode != ModeNone {
		return nil, fmt.Errorf("unknown auth mode %q", authMode)
	}
	return &Middleware{
		jwtManager: jwtManager,
		authMode:   authMode,
		logger:     logger.With().Str("component", "auth").Logger(),
	}, nil
}

// anonymous is attached in ModeNone so handlers can authorize uniformly.
var anonymous = &Claims{Role: RoleAdmin}

// Authenticate rejects requests without a valid token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == ModeNone {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsContextKey, anonymous)))
			return
		}

		token, err := extractBearerToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			log := logging.CtxFrom(r.Context(), m.logger)
			log.Warn().Err(err).Msg("Token validation failed")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		ctx = logging.ContextWithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated requests whose token is not an admin
// token. It must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "Forbidden: invalid claims", http.StatusForbidden)
			return
		}
		if !claims.IsAdmin() {
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the claims Authenticate attached.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("unauthorized: missing token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}

	return strings.TrimSpace(parts[1]), nil
}
