package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/ports"
	"github.com/skyward-ops/droneops/internal/core/services/policy"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserFromContext extracts the authenticated user placed by AuthMiddleware.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(UserContextKey).(*domain.User)
	return user
}

// AuthMiddleware ensures the request has a valid session. The token comes
// from the auth_token cookie, with an Authorization bearer fallback for API
// clients.
func AuthMiddleware(authService ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie("auth_token"); err == nil {
				token = cookie.Value
			}
			if token == "" {
				authHeader := r.Header.Get("Authorization")
				if strings.HasPrefix(authHeader, "Bearer ") {
					token = strings.TrimPrefix(authHeader, "Bearer ")
				}
			}

			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}

			user, err := authService.ValidateToken(r.Context(), token)
			if err != nil {
				// Clear the stale cookie so browsers re-authenticate.
				http.SetCookie(w, &http.Cookie{
					Name:   "auth_token",
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				writeJSONError(w, http.StatusUnauthorized, "Invalid session", nil)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleMiddleware rejects users below the required role with a 403 naming
// both the required and the current role.
func RoleMiddleware(requiredRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				writeJSONError(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}

			if !user.Role.Satisfies(requiredRole) {
				writeJSONError(w, http.StatusForbidden, "Insufficient role", map[string]any{
					"required_role": string(requiredRole),
					"current_role":  string(user.Role),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ArmedMiddleware rejects armed-gated requests while the action plane is
// disarmed, returning the policy snapshot so clients can show the operator
// what to do.
func ArmedMiddleware(engine *policy.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := engine.State()
			if !state.Armed {
				writeJSONError(w, http.StatusForbidden, "Action plane is not armed", map[string]any{
					"policy": state,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string, extra map[string]any) {
	body := map[string]any{
		"status":  "error",
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
