package auth

import "context"

type contextKey string

const adminContextKey contextKey = "admin_identity"

// Admin is the authenticated administrator attached to a request.
type Admin struct {
	ID        int64
	Email     string
	SessionID string
}

// ContextWithAdmin adds the admin identity to the context.
func ContextWithAdmin(ctx context.Context, admin *Admin) context.Context {
	return context.WithValue(ctx, adminContextKey, admin)
}

// AdminFromContext returns the admin identity, or nil if not authenticated.
func AdminFromContext(ctx context.Context) *Admin {
	admin, ok := ctx.Value(adminContextKey).(*Admin)
	if !ok {
		return nil
	}
	return admin
}

// AdminIDFromContext returns the admin ID, or 0 if not authenticated.
func AdminIDFromContext(ctx context.Context) int64 {
	if admin := AdminFromContext(ctx); admin != nil {
		return admin.ID
	}
	return 0
}
