package middleware

import (
	"context"
	"net/http"

	"shelterwalk/pkg/model"
)

// Identity headers set by the gateway after authentication. The service
// trusts them; it never validates credentials itself.
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"

	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

const actorKey contextKey = "actor"

// Identity reads the gateway's identity headers into an Actor. Requests
// without a user ID are rejected before reaching any handler.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(HeaderUserID)
			if userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Missing identity"}`))
				return
			}

			role := r.Header.Get(HeaderRole)
			actor := model.Actor{
				UserID:       userID,
				IsAdmin:      role == RoleAdmin || role == RoleSuperAdmin,
				IsSuperAdmin: role == RoleSuperAdmin,
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the request's actor. The zero Actor means the identity
// middleware did not run.
func ActorFrom(ctx context.Context) model.Actor {
	if actor, ok := ctx.Value(actorKey).(model.Actor); ok {
		return actor
	}
	return model.Actor{}
}
