package tools

import "context"

type contextKey string

const userIDKey contextKey = "user_id"

// DefaultUserID is used when no user id was bound to the request.
const DefaultUserID = "default_user"

// WithUserID binds the acting user id to the request context. Tools
// invoked during the request read it back with [UserIDFromContext];
// each in-flight request carries its own binding, so concurrent
// requests cannot observe each other's user.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the acting user id from the context.
// Returns [DefaultUserID] if none was bound.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return DefaultUserID
}
