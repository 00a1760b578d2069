package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-forces/internal/httpx"
)

type contextKey string

const (
	UserKey     contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// TokenValidator is what we need from the user service, kept as an
// interface so this package stays decoupled from it.
type TokenValidator interface {
	ValidateToken(tokenString string) (int, string, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(v TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: v}
}

// Handle authenticates a request from the Authorization header, falling
// back to the "token" query parameter. The fallback is load-bearing:
// browser websocket clients cannot set headers on the upgrade request.
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}

		if tokenString == "" {
			httpx.Error(w, http.StatusUnauthorized, "missing authentication token")
			return
		}

		userID, username, err := am.validator.ValidateToken(tokenString)
		if err != nil {
			httpx.Error(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, userID)
		ctx = context.WithValue(ctx, UsernameKey, username)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity pulls the authenticated user out of a request context.
func Identity(ctx context.Context) (int, string, bool) {
	userID, ok := ctx.Value(UserKey).(int)
	username, ok2 := ctx.Value(UsernameKey).(string)
	return userID, username, ok && ok2
}
