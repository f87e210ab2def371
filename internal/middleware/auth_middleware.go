package middleware

import (
	"context"
	"net/http"
	"strings"

	"geodirectory-sync/pkg/jwt"
	"geodirectory-sync/pkg/response"
)

type contextKey string

const (
	ClientIDKey contextKey = "clientID"

	clientSlotKey contextKey = "clientSlot"
)

// withClientSlot lets an outer middleware learn the client id once the
// request has been authenticated further down the chain.
func withClientSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, clientSlotKey, slot)
}

// AuthMiddleware accepts requests carrying a valid "Bearer <token>" header
// and stores the token's client id in the request context.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || token == "" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwt.ValidateToken(token, jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			if slot, ok := r.Context().Value(clientSlotKey).(*string); ok {
				*slot = claims.ClientID
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, claims.ClientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClientID(r *http.Request) string {
	clientID, ok := r.Context().Value(ClientIDKey).(string)
	if !ok {
		return ""
	}
	return clientID
}
