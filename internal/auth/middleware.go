package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

// ClaimsContextKey is where RequireAdmin stores the validated claims.
const ClaimsContextKey contextKey = "auth.claims"

// ClaimsFromContext returns the claims placed in the context by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

func abortUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RequireAdmin is chi-compatible middleware guarding write endpoints. It
// expects "Authorization: Bearer <access token>" signed by this service and
// carrying the admin claim.
func (tm *TokenManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			abortUnauthorized(w, "Authentication token required")
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header || tokenString == "" {
			abortUnauthorized(w, "Authorization header must be a Bearer token")
			return
		}

		claims, err := tm.ParseAccess(tokenString)
		if err != nil {
			abortUnauthorized(w, "Invalid token")
			return
		}
		if !claims.IsAdmin {
			abortUnauthorized(w, ErrAdminRequired.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
