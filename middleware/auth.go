package middleware

import (
	"context"
	"net/http"
	"strings"

	"dam/models"
	"dam/utils"
)

// AuthMiddleware validates the bearer token and injects the caller's
// identity into the request context. The role claim is normalized here,
// once, at the trust boundary; downstream code only ever sees the
// models.Role enum.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades authenticate via query token in the handler.
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ValidateJWT(tokenString)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "userName", claims.Username)
		ctx = context.WithValue(ctx, "userRole", string(models.ParseRole(claims.Role)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
