package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/auth"
	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
	"github.com/vidaplena/igreja-admin-go/internal/infra/supabase"
)

type contextKey string

const identityKey contextKey = "identity"

// BearerAuthMiddleware validates the Authorization bearer token against the
// Supabase JWT secret and injects the token's identity into the context.
func BearerAuthMiddleware(verifier *supabase.TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			identity, err := verifier.Verify(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
				return
			}

			logger.Debug("auth: token accepted",
				zap.String("user_id", identity.ID),
				observability.Redacted("token", parts[1]),
			)

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	v, _ := ctx.Value(identityKey).(*domain.Identity)
	return v
}

// stateProvider yields the current auth state snapshot.
type stateProvider interface {
	State() domain.AuthState
}

// GuardMiddleware runs the route guard before admitting a request. Redirect
// decisions become 302 responses; a still-resolving state becomes a 503 with
// a Retry-After hint.
func GuardMiddleware(guard *auth.Guard, states stateProvider, allowedRoles []domain.Role, resourceParam func(*http.Request) string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resourceID := ""
			if resourceParam != nil {
				resourceID = resourceParam(r)
			}

			decision := guard.Evaluate(r.Context(), states.State(), allowedRoles, resourceID)
			switch decision.Outcome {
			case auth.Admit:
				next.ServeHTTP(w, r)
			case auth.Wait:
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "Autenticação em andamento")
			default:
				http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			}
		})
	}
}
