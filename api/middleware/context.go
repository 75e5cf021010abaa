package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/tallyops/stockcount-backend/pkg/authz"
	"github.com/tallyops/stockcount-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// CallerFromContext rebuilds the authenticated actor seeded by the Auth
// middleware. A zero Caller means the request was not authenticated.
func CallerFromContext(ctx context.Context) authz.Caller {
	caller := authz.Caller{}
	if id, err := uuid.Parse(UserIDFromContext(ctx)); err == nil {
		caller.UserID = id
	}
	if role, err := enums.ParseUserRole(RoleFromContext(ctx)); err == nil {
		caller.Role = role
	}
	return caller
}

// WithCaller injects the actor identity into the context.
func WithCaller(ctx context.Context, userID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}
