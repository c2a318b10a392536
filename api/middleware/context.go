package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/memorial-backend/pkg/enums"
	"github.com/angelmondragon/memorial-backend/pkg/visibility"
)

// identity is what Auth learns from a verified access token.
type identity struct {
	userID   uuid.UUID
	role     enums.SystemRole
	accessID string
}

type identityKey struct{}

func withIdentity(ctx context.Context, id identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFrom(ctx context.Context) (identity, bool) {
	if ctx == nil {
		return identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(identity)
	return id, ok && id.userID != uuid.Nil
}

// UserIDFromContext is empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := identityFrom(ctx); ok {
		return id.userID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.SystemRole {
	id, _ := identityFrom(ctx)
	return id.role
}

// AccessIDFromContext returns the token's session identifier (jti).
func AccessIDFromContext(ctx context.Context) string {
	id, _ := identityFrom(ctx)
	return id.accessID
}

// ActorFromContext builds the access-gate actor, or nil for anonymous requests.
func ActorFromContext(ctx context.Context) *visibility.Actor {
	id, ok := identityFrom(ctx)
	if !ok {
		return nil
	}
	return &visibility.Actor{UserID: id.userID, Role: id.role}
}

// WithActor injects an authenticated identity without a session; tests use
// it to skip token handling.
func WithActor(ctx context.Context, userID uuid.UUID, role enums.SystemRole) context.Context {
	return withIdentity(ctx, identity{userID: userID, role: role})
}
