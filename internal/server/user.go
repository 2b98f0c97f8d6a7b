package server

import (
	"context"
	"net/http"
	"strings"

	"networth-tracker/internal/logging"
)

// UserHeader carries the current user id. Authentication happens in front of this service.
const UserHeader = "X-User-ID"

type userKey struct{}

// userMiddleware resolves the current user and attaches a user-scoped logger.
func (s *Server) userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			userID = s.defaultUser
		}

		ctx := context.WithValue(r.Context(), userKey{}, userID)
		ctx = logging.WithLogger(ctx, logging.WithUser(s.log, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the user resolved for the request.
func UserFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userKey{}).(string)
	return userID
}
