package middleware

import (
	"context"
	"net/http"
	"strings"

	"studwerk/internal/common"
	"studwerk/internal/domain/user"
	"studwerk/internal/http/response"
	"studwerk/internal/security"
)

type contextKey string

const contextActorKey contextKey = "actor"

type AuthMiddleware struct {
	jwt *security.JWTProvider
}

func NewAuthMiddleware(jwt *security.JWTProvider) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Error(w, common.NewError(common.CodeUnauthorized, "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid authorization header", nil))
			return
		}
		actor, err := m.jwt.Parse(parts[1])
		if err != nil {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid token", err))
			return
		}
		ctx := context.WithValue(r.Context(), contextActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireRole(role user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				response.Error(w, common.NewError(common.CodeUnauthorized, "authentication required", nil))
				return
			}
			if actor.Role != role {
				response.Error(w, common.NewError(common.CodeForbidden, "insufficient role", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ActorFromContext(ctx context.Context) (*security.Actor, bool) {
	actor, ok := ctx.Value(contextActorKey).(*security.Actor)
	return actor, ok
}
