// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// IdentityKey is the context key for the authenticated identity.
	IdentityKey ContextKey = "identity"
)

// Claims represents JWT claims. Name and Email feed the quick-action
// identity requirement; tokens without them still authenticate, but
// calendar lookups for the caller will be refused downstream.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Auth creates JWT authentication middleware.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			identity := model.Identity{
				UserID:      claims.Subject,
				DisplayName: claims.Name,
				Email:       claims.Email,
			}
			ctx := context.WithValue(r.Context(), IdentityKey, identity)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity gets the authenticated identity from context.
func GetIdentity(ctx context.Context) model.Identity {
	if v := ctx.Value(IdentityKey); v != nil {
		return v.(model.Identity)
	}
	return model.Identity{}
}

// GetUserID gets the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	return GetIdentity(ctx).UserID
}
