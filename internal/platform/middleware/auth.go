package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/infinex-exchange/wallet.addressbook/internal/auth/revocation"
	"github.com/infinex-exchange/wallet.addressbook/internal/jwttoken"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// Context keys for storing authenticated user information
type contextKeyUserID struct{}

// ContextKeyUserID is exported for use in handlers
var ContextKeyUserID = contextKeyUserID{}

// GetUserID retrieves the authenticated user ID from the context.
// Returns 0 when the request was not authenticated.
func GetUserID(ctx context.Context) int64 {
	userID, ok := ctx.Value(ContextKeyUserID).(int64)
	if !ok {
		return 0
	}
	return userID
}

// RequireAuth validates the bearer token, rejects revoked tokens, and puts
// the user id on the request context. A nil trl skips the revocation check.
func RequireAuth(validator JWTValidator, trl revocation.TokenRevocationList, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if trl != nil {
				revoked, err := trl.IsRevoked(ctx, claims.ID)
				if err != nil {
					// Revocation backend down: reject rather than honour a
					// possibly revoked token.
					logger.ErrorContext(ctx, "revocation check failed",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
					writeUnauthorized(w, "Unable to verify token")
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - revoked token",
						"jti", claims.ID,
						"request_id", GetRequestID(ctx),
					)
					writeUnauthorized(w, "Token has been revoked")
					return
				}
			}

			userID, err := claims.UserID()
			if err != nil {
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"UNAUTHORIZED","error_description":"` + description + `"}`))
}
