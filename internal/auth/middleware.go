package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const operatorIDKey contextKey = "operator_id"

// Middleware returns an HTTP middleware that validates access tokens.
// Extracts the token from the Authorization header (Bearer scheme)
// and stores the operator ID in the request context.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}

			claims, err := jwtMgr.ValidateToken(parts[1], KindAccess)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), operatorIDKey, claims.OperatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorIDFromContext extracts the authenticated operator ID from the request context.
func OperatorIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(operatorIDKey).(string)
	return id
}
