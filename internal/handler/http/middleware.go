package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/pkg/logger"
)

// VisitorCookieName identifies the browser across requests. The cookie is
// the storefront's only client-side state; everything else lives server-side
// keyed by its value.
const VisitorCookieName = "storefront_visitor"

const visitorCookieMaxAge = 365 * 24 * time.Hour

type visitorIDKey struct{}

// VisitorCookie assigns a visitor ID to every request. An existing cookie is
// reused; a missing or malformed one is replaced with a fresh UUID. The ID
// lands in the request context and on the request-scoped logger.
func VisitorCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var visitorID string

		if c, err := r.Cookie(VisitorCookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				visitorID = c.Value
			}
		}

		if visitorID == "" {
			visitorID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookieName,
				Value:    visitorID,
				Path:     "/",
				MaxAge:   int(visitorCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), visitorIDKey{}, visitorID)
		ctx = logger.WithVisitorID(ctx, visitorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// VisitorID extracts the visitor ID set by VisitorCookie, or "" outside it.
func VisitorID(ctx context.Context) string {
	if id, ok := ctx.Value(visitorIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ContentTypeJSON sets the JSON content type on all responses.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
