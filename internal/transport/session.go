package transport

import (
	"context"
	"net/http"
)

// SessionHeader names the default tracking session of a request.
const SessionHeader = "X-Timely-Session-Id"

type sessionKey struct{}

// SessionIDFromContext returns the session ID from context, if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionKey{}).(string)
	return sessionID, ok
}

// SessionMiddleware stores the X-Timely-Session-Id header in context.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionID := r.Header.Get(SessionHeader); sessionID != "" {
			r = r.WithContext(context.WithValue(r.Context(), sessionKey{}, sessionID))
		}
		next.ServeHTTP(w, r)
	})
}
