// Package api exposes the pull and push endpoints over HTTP using chi.
// The bearer token a request presents is the credential used against the
// remote repository; the API itself stores no credentials.
package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const tokenKey contextKey = "token"

// AuthMiddleware requires an "Authorization: Bearer <token>" header and
// makes the token available to handlers. Requests without one are rejected
// with 401 before any remote call is made.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")

		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey, token)))
	})
}

// requestToken returns the bearer token AuthMiddleware stored.
func requestToken(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey).(string)

	return token
}
