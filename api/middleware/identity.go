package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/api/responses"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
)

// Actor identity arrives on trusted headers set by the edge proxy after
// authentication. This service never validates credentials itself.
const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

type actorKey struct{}

// Actor is the authenticated warehouse member driving the request.
type Actor struct {
	ID   uuid.UUID
	Role enums.MemberRole
}

// ActorFromContext returns the actor attached by RequireIdentity.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// WithActor attaches an actor to the context. Exposed for tests.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// RequireIdentity rejects requests without a valid actor id and role.
func RequireIdentity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, err := uuid.Parse(r.Header.Get(actorIDHeader))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
				return
			}
			role, err := enums.ParseMemberRole(r.Header.Get(actorRoleHeader))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing"))
				return
			}

			ctx := WithActor(r.Context(), Actor{ID: actorID, Role: role})
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID.String())
				ctx = logg.WithActorRole(ctx, role.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only the listed roles past.
func RequireRole(logg *logger.Logger, roles ...enums.MemberRole) func(http.Handler) http.Handler {
	allowed := make(map[enums.MemberRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
				return
			}
			if !allowed[actor.Role] {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
