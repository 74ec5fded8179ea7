package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/askly/chat/internal/auth"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Authenticate resolves the session cookie and puts the user ID into the
// request context. Unauthenticated requests are rejected here so handlers
// can assume UserID(r) is valid.
func Authenticate(a *auth.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userIDStr, err := a.VerifyCookie(cookie.Value)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := strconv.Atoi(userIDStr)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user's ID, or zero when the request did
// not pass through Authenticate.
func UserID(r *http.Request) int {
	id, _ := r.Context().Value(UserIDKey).(int)
	return id
}
