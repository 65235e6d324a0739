// Package requestctx carries the authenticated caller through request contexts.
package requestctx

import "context"

type userIDContextKey struct{}

type roleContextKey struct{}

// WithUserID stores a user identifier in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the user identifier stored in context.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDContextKey{}).(string)
	return value
}

// WithCaller stores both the user identifier and role in context.
func WithCaller(ctx context.Context, userID string, role string) context.Context {
	ctx = WithUserID(ctx, userID)
	return context.WithValue(ctx, roleContextKey{}, role)
}

// RoleFromContext returns the caller role stored in context.
func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(roleContextKey{}).(string)
	return value
}
